package midi

import "strconv"

// Accepted filters texts down to the valid messages, preserving input order.
// The position of each entry in the result is its accepted index.
func Accepted(texts []string) (accepted []Message, rejected []string) {
	for _, t := range texts {
		m, err := Parse(t)
		if err != nil {
			rejected = append(rejected, t)
			continue
		}
		accepted = append(accepted, m)
	}
	return accepted, rejected
}

// FormatList renders bytes the way the host logs outbound MIDI: "[ 144,60,100 ]".
func FormatList(m Message) string {
	return "[ " + strconv.Itoa(int(m[0])) + "," + strconv.Itoa(int(m[1])) + "," + strconv.Itoa(int(m[2])) + " ]"
}
