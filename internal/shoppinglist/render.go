package shoppinglist

import "strconv"

const DefaultHeader = "Shopping list"

// RenderLines formats entries under DefaultHeader.
func RenderLines(entries []Entry) []string {
	return RenderLinesWithHeader(DefaultHeader, entries)
}

// RenderLinesWithHeader returns the header followed by one
// "<n> <name> - <total>, <unit>" line per entry, n starting at 1.
func RenderLinesWithHeader(header string, entries []Entry) []string {
	out := make([]string, 0, len(entries)+1)
	out = append(out, header)
	for i, e := range entries {
		out = append(out, strconv.Itoa(i+1)+" "+e.Name+" - "+strconv.Itoa(e.TotalAmount)+", "+e.Unit)
	}
	return out
}
