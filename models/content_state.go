package models

// ContentState: результат проверки наличия опубликованного поста.
// ContentUnknown никогда не считается нарушением.
type ContentState int

const (
	ContentUnknown ContentState = iota
	ContentPresent
	ContentAbsent
)

func (s ContentState) String() string {
	switch s {
	case ContentPresent:
		return "present"
	case ContentAbsent:
		return "absent"
	}
	return "unknown"
}
