package git

import "strings"

// parseCommitMessage splits commit message into subject and body
func parseCommitMessage(message string) (subject, body string) {
	lines := strings.SplitN(message, "\n", 2)
	subject = strings.TrimSpace(lines[0])
	if len(lines) > 1 {
		body = strings.TrimSpace(lines[1])
	}
	return
}

// ParseLog decodes `git log --format=+++%s__%b__%h__%H` output.
// Records are split on "+++" and fields on "__"; missing fields are left
// empty and blank records are dropped.
func ParseLog(raw string) []CommitRecord {
	var records []CommitRecord
	for _, chunk := range strings.Split(raw, logRecordSeparator) {
		if strings.TrimSpace(chunk) == "" {
			continue
		}

		fields := strings.Split(chunk, logFieldSeparator)
		field := func(i int) string {
			if i < len(fields) {
				return fields[i]
			}
			return ""
		}

		records = append(records, CommitRecord{
			Subject:   field(0),
			Body:      strings.TrimSpace(field(1)),
			ShortHash: strings.TrimSpace(field(2)),
			Hash:      strings.TrimSpace(field(3)),
		})
	}
	return records
}
