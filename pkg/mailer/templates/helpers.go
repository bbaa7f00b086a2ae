package templates

// TaskReminderData feeds the task_reminder templates. Field names are the
// template keys, so the struct and its ToMap form render identically.
type TaskReminderData struct {
	AppName     string
	Name        string
	Email       string
	Title       string
	Description string
	DueDate     string
	Priority    string
	Status      string
}

// ToMap converts the data for EmailJob.Data.
func (d TaskReminderData) ToMap() map[string]any {
	return map[string]any{
		"AppName":     d.AppName,
		"Name":        d.Name,
		"Email":       d.Email,
		"Title":       d.Title,
		"Description": d.Description,
		"DueDate":     d.DueDate,
		"Priority":    d.Priority,
		"Status":      d.Status,
	}
}
