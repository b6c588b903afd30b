package report

// dateTimeFormat is used for RFC3339 timestamps in report payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// FileView describes one indexed file in a transport-friendly format.
type FileView struct {
	ID          int64  `json:"id"`
	Path        string `json:"path"`
	Kind        string `json:"kind"`
	SizeBytes   int64  `json:"sizeBytes"`
	ModTime     string `json:"modTime,omitempty"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
	DurationMs  int64  `json:"durationMs,omitempty"`
	BitrateKbps int    `json:"bitrateKbps,omitempty"`
}

// ClusterView describes one duplicate group, split into the member the
// keep policy selected and the redundant copies.
type ClusterView struct {
	ID               string     `json:"id"`
	ScanID           string     `json:"scanId"`
	Kind             string     `json:"kind"`
	Confidence       float64    `json:"confidence"`
	SuggestedKeep    FileView   `json:"suggestedKeep"`
	Duplicates       []FileView `json:"duplicates"`
	ReclaimableBytes int64      `json:"reclaimableBytes"`
	CreatedAt        string     `json:"createdAt,omitempty"`
}

// ScanView summarizes one scan run.
type ScanView struct {
	ID            string `json:"id"`
	Mode          string `json:"mode"`
	Status        string `json:"status"`
	StartedAt     string `json:"startedAt,omitempty"`
	FinishedAt    string `json:"finishedAt,omitempty"`
	Seen          int    `json:"seen"`
	Fingerprinted int    `json:"fingerprinted"`
	Reused        int    `json:"reused"`
	Skipped       int    `json:"skipped"`
	Degraded      int    `json:"degraded"`
	Clusters      int    `json:"clusters"`
	Error         string `json:"error,omitempty"`
}

// Report aggregates everything the report command renders: the active
// duplicate clusters and the scan that produced them.
type Report struct {
	GeneratedAt      string        `json:"generatedAt"`
	Scan             *ScanView     `json:"scan,omitempty"`
	Clusters         []ClusterView `json:"clusters"`
	TotalFiles       int           `json:"totalFiles"`
	DuplicateFiles   int           `json:"duplicateFiles"`
	ReclaimableBytes int64         `json:"reclaimableBytes"`
}

// IndexStats aggregates index-level information for the status command.
type IndexStats struct {
	DatabasePath   string    `json:"databasePath"`
	DatabaseBytes  int64     `json:"databaseBytes"`
	Files          int       `json:"files"`
	Fingerprints   int       `json:"fingerprints"`
	ActiveClusters int       `json:"activeClusters"`
	LastScan       *ScanView `json:"lastScan,omitempty"`
}
