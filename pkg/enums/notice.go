package enums

import "fmt"

// NoticeCategory groups notices on the public board.
type NoticeCategory string

const (
	NoticeCategoryGeneral NoticeCategory = "General"
	NoticeCategoryExam    NoticeCategory = "Exam"
	NoticeCategoryHoliday NoticeCategory = "Holiday"
	NoticeCategoryUrgent  NoticeCategory = "Urgent"
)

var validNoticeCategories = []NoticeCategory{
	NoticeCategoryGeneral,
	NoticeCategoryExam,
	NoticeCategoryHoliday,
	NoticeCategoryUrgent,
}

func (c NoticeCategory) String() string {
	return string(c)
}

func (c NoticeCategory) IsValid() bool {
	for _, candidate := range validNoticeCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

func ParseNoticeCategory(value string) (NoticeCategory, error) {
	if value == "" {
		return NoticeCategoryGeneral, nil
	}
	for _, candidate := range validNoticeCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notice category %q", value)
}

// NoticePriority is derived from the category.
type NoticePriority string

const (
	NoticePriorityHigh   NoticePriority = "High"
	NoticePriorityNormal NoticePriority = "Normal"
)

// Priority returns High for urgent notices and Normal otherwise.
func (c NoticeCategory) Priority() NoticePriority {
	if c == NoticeCategoryUrgent {
		return NoticePriorityHigh
	}
	return NoticePriorityNormal
}
