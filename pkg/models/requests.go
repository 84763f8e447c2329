package models

// MergeRequest is the body for executing a single merge.
type MergeRequest struct {
	PrimaryID    string   `json:"primary_id" validate:"required,uuid"`
	DuplicateIDs []string `json:"duplicate_ids" validate:"required,min=1,dive,uuid"`
	DryRun       bool     `json:"dry_run"`
}

// BatchMergeRequest is the body for executing several merges in one call.
type BatchMergeRequest struct {
	Instructions []MergeInstruction `json:"instructions" validate:"required,min=1,dive"`
	DryRun       bool               `json:"dry_run"`
}

// RunRequest is the body for a full discover-and-merge pass.
type RunRequest struct {
	Mode     string `json:"mode" validate:"omitempty,oneof=email phone both"`
	Strategy string `json:"strategy" validate:"omitempty,oneof=keep-oldest keep-newest"`
	Limit    int    `json:"limit" validate:"omitempty,min=0"`
	DryRun   bool   `json:"dry_run"`
}
