package conventional

import "github.com/Yates-Labs/verbump/internal/ingest/git"

// Change is a commit whose subject matched the conventional grammar
type Change struct {
	git.CommitRecord

	Type        string
	Scope       string
	Description string
	Breaking    bool
}

// Bucket groups changes by type. Types keep the order in which they were
// first seen and changes keep commit order within a type.
type Bucket struct {
	order  []string
	byType map[string][]Change
}

func (b *Bucket) add(c Change) {
	if b.byType == nil {
		b.byType = make(map[string][]Change)
	}
	if _, ok := b.byType[c.Type]; !ok {
		b.order = append(b.order, c.Type)
	}
	b.byType[c.Type] = append(b.byType[c.Type], c)
}

// Types returns the commit types in encounter order
func (b Bucket) Types() []string {
	return b.order
}

// Changes returns the changes filed under typ
func (b Bucket) Changes(typ string) []Change {
	return b.byType[typ]
}

// Has reports whether at least one change of typ was filed
func (b Bucket) Has(typ string) bool {
	return len(b.byType[typ]) > 0
}

// Len returns the number of changes across all types
func (b Bucket) Len() int {
	n := 0
	for _, changes := range b.byType {
		n += len(changes)
	}
	return n
}

// IsEmpty reports whether no change was filed
func (b Bucket) IsEmpty() bool {
	return len(b.order) == 0
}

// Classification splits release commits into breaking and normal changes
type Classification struct {
	Breaking Bucket
	Normal   Bucket
}

// HasBreaking reports whether any commit carried the breaking marker
func (c Classification) HasBreaking() bool {
	return !c.Breaking.IsEmpty()
}

// HasFeatures reports whether any non-breaking feat commit was found
func (c Classification) HasFeatures() bool {
	return c.Normal.Has(TypeFeature)
}

// Commit types with a changelog group
const (
	TypeFeature = "feat"
	TypeFix     = "fix"
)

// Classify files each commit under its type. Commits whose subject does not
// match the grammar are left out.
func Classify(commits []git.CommitRecord) Classification {
	var result Classification
	for _, commit := range commits {
		subject := ParseSubject(commit.Subject)
		if !subject.Matched {
			continue
		}

		change := Change{
			CommitRecord: commit,
			Type:         subject.Type,
			Scope:        subject.Scope,
			Description:  subject.Description,
			Breaking:     subject.Breaking,
		}

		if change.Breaking {
			result.Breaking.add(change)
		} else {
			result.Normal.add(change)
		}
	}
	return result
}
