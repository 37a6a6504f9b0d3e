package repository

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

const (
	measurement  = "events"
	fieldMessage = "message"
)

// fluxString quotes s as a Flux string literal.
func fluxString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`, "\t", `\t`, "${", `\${`)
	return `"` + r.Replace(s) + `"`
}

func fluxTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// rangeQuery selects message points in [start, stop) with one equality filter per tag.
// Rows come back as a single table sorted by time.
func rangeQuery(bucket string, start, stop time.Time, tags map[string]string, limit int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "from(bucket: %s)\n", fluxString(bucket))
	fmt.Fprintf(&b, "  |> range(start: %s, stop: %s)\n", fluxTime(start), fluxTime(stop))
	fmt.Fprintf(&b, "  |> filter(fn: (r) => r[\"_measurement\"] == %s and r[\"_field\"] == %s)\n",
		fluxString(measurement), fluxString(fieldMessage))
	for _, k := range sortedKeys(tags) {
		fmt.Fprintf(&b, "  |> filter(fn: (r) => r[%s] == %s)\n", fluxString(k), fluxString(tags[k]))
	}
	b.WriteString("  |> group()\n")
	b.WriteString("  |> sort(columns: [\"_time\"])")
	if limit > 0 {
		fmt.Fprintf(&b, "\n  |> limit(n: %d)", limit)
	}
	return b.String()
}

// deletePredicate builds the InfluxDB delete predicate for the events measurement.
// Tag values must not contain double quotes; request validation rejects them.
func deletePredicate(tags map[string]string) string {
	parts := []string{fmt.Sprintf(`_measurement=%q`, measurement)}
	for _, k := range sortedKeys(tags) {
		parts = append(parts, k+`="`+tags[k]+`"`)
	}
	return strings.Join(parts, " AND ")
}
