package git

// CommitRecord is a single commit between the boundary tag and HEAD
// Only the fields needed to classify and link a commit are kept
type CommitRecord struct {
	Subject   string `json:"subject"`
	Body      string `json:"body"`
	ShortHash string `json:"short_hash"`
	Hash      string `json:"hash"`
}

// shortHashLen matches git's default abbreviation
const shortHashLen = 7

// logRecordSeparator and logFieldSeparator delimit `git log` output
// produced with logFormat
const (
	logRecordSeparator = "+++"
	logFieldSeparator  = "__"
	logFormat          = logRecordSeparator + "%s" + logFieldSeparator + "%b" + logFieldSeparator + "%h" + logFieldSeparator + "%H"
)
