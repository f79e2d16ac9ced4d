package database

// Notifier is told about every committed write, after the commit.
type Notifier interface {
	Notify(c Collection)
}

// NopNotifier discards notifications.
type NopNotifier struct{}

func (NopNotifier) Notify(Collection) {}
