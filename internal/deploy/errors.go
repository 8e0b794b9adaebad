package deploy

import "fmt"

// DispatchError means the site was committed and pushed but the downstream
// workflow-dispatch call failed. There is no rollback of the push; callers
// must surface this instead of treating the deployment as fully failed.
type DispatchError struct {
	Commit string
	Branch string
	Err    error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("site pushed to %s (commit %s) but workflow dispatch failed: %v", e.Branch, e.Commit, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }
