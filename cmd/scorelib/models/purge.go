package models

// PurgeResult summarizes one user purge: associations removed, owned
// entries deleted outright or detached because other libraries still
// reference them, and blobs reclaimed afterwards.
type PurgeResult struct {
	AssociationsRemoved int64    `json:"associations_removed"`
	ScoresDeleted       int64    `json:"scores_deleted"`
	ScoresDetached      int64    `json:"scores_detached"`
	BlobsDeleted        int64    `json:"blobs_deleted"`
	Fingerprints        []string `json:"-"`
}
