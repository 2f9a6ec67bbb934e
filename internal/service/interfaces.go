package service

// DigestSender delivers the daily stats digest.
type DigestSender interface {
	SendDigest() error
}

// Backupper creates a database backup and returns its path.
type Backupper interface {
	Backup() (string, error)
}

// Snapshotter writes a consistent copy of a database to a new file.
type Snapshotter interface {
	SnapshotTo(path string) error
}
