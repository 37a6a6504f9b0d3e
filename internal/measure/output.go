package measure

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bytedance/sonic"
)

// FileName is the output file for op.
func FileName(op string) string {
	return "span_duration_data_" + op + ".json"
}

// WriteResults writes one JSON array of {span, duration} per operation into
// dir and returns the paths in operation name order.
func WriteResults(dir string, res Results) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	ops := make([]string, 0, len(res))
	for op := range res {
		ops = append(ops, op)
	}
	sort.Strings(ops)

	paths := make([]string, 0, len(ops))
	for _, op := range ops {
		data, err := sonic.Marshal(res[op])
		if err != nil {
			return paths, fmt.Errorf("encode %s: %w", op, err)
		}
		path := filepath.Join(dir, FileName(op))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return paths, fmt.Errorf("write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
