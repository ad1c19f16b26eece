package enums

import "fmt"

// ResourceType classifies an uploaded study resource.
type ResourceType string

const (
	ResourceTypeQuestionPaper ResourceType = "Question Paper"
	ResourceTypeNotes         ResourceType = "Notes"
	ResourceTypeSyllabus      ResourceType = "Syllabus"
)

var validResourceTypes = []ResourceType{
	ResourceTypeQuestionPaper,
	ResourceTypeNotes,
	ResourceTypeSyllabus,
}

func (r ResourceType) String() string {
	return string(r)
}

func (r ResourceType) IsValid() bool {
	for _, candidate := range validResourceTypes {
		if candidate == r {
			return true
		}
	}
	return false
}

func ParseResourceType(value string) (ResourceType, error) {
	for _, candidate := range validResourceTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid resource type %q", value)
}

// ResourceTypes lists every resource type in display order.
func ResourceTypes() []ResourceType {
	out := make([]ResourceType, len(validResourceTypes))
	copy(out, validResourceTypes)
	return out
}

// Branch is an engineering department code.
type Branch string

const (
	BranchCSE Branch = "CSE"
	BranchIT  Branch = "IT"
	BranchECE Branch = "ECE"
	BranchME  Branch = "ME"
	BranchEE  Branch = "EE"
	BranchCE  Branch = "CE"
)

var branchNames = []struct {
	code Branch
	name string
}{
	{BranchCSE, "Computer Science"},
	{BranchIT, "Information Tech"},
	{BranchECE, "Electronics & Comm"},
	{BranchME, "Mechanical Eng"},
	{BranchEE, "Electrical Eng"},
	{BranchCE, "Civil Engineering"},
}

func (b Branch) String() string {
	return string(b)
}

func (b Branch) IsValid() bool {
	return b.DisplayName() != ""
}

// DisplayName returns the human label for the branch, or "" when unknown.
func (b Branch) DisplayName() string {
	for _, entry := range branchNames {
		if entry.code == b {
			return entry.name
		}
	}
	return ""
}

func ParseBranch(value string) (Branch, error) {
	b := Branch(value)
	if !b.IsValid() {
		return "", fmt.Errorf("invalid branch %q", value)
	}
	return b, nil
}

// Branches lists every branch in display order.
func Branches() []Branch {
	out := make([]Branch, 0, len(branchNames))
	for _, entry := range branchNames {
		out = append(out, entry.code)
	}
	return out
}

var semesterOrdinals = []string{"1st", "2nd", "3rd", "4th", "5th", "6th", "7th", "8th"}

// Semesters returns the eight semester labels ("1st Semester" .. "8th Semester").
func Semesters() []string {
	out := make([]string, 0, len(semesterOrdinals))
	for _, ord := range semesterOrdinals {
		out = append(out, ord+" Semester")
	}
	return out
}

// IsValidSemester reports whether value is one of the semester labels.
func IsValidSemester(value string) bool {
	for _, sem := range Semesters() {
		if sem == value {
			return true
		}
	}
	return false
}
