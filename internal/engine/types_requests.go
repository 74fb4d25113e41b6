package engine

// InitRequest represents a request to capture the base snapshot.
type InitRequest struct {
	// Ref captures the snapshot from a git revision instead of the working tree.
	Ref string
}

// ApplyRequest represents a request to apply skills.
type ApplyRequest struct {
	// Skills lists skill directory names or skill ids, in request order.
	Skills []string

	// Installed applies every skill in the installed-skills declaration
	// (after any listed in Skills).
	Installed bool

	// Force allows overwriting conflicting files
	Force bool

	// DryRun performs planning only without making changes
	DryRun bool
}

// CleanRequest represents a request to remove every applied skill.
type CleanRequest struct {
	// Force skips the uncommitted-changes check
	Force bool

	// DryRun shows what would be removed without actually removing
	DryRun bool
}

// RemapRequest represents a request to change the path remap table.
type RemapRequest struct {
	// CWD is the current working directory, used to resolve Physical.
	CWD string

	// Logical is the path as skill manifests declare it.
	Logical string

	// Physical is where the file actually lives. Ignored when Remove is set.
	Physical string

	// Remove deletes the entry for Logical.
	Remove bool
}
