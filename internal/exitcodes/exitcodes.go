package exitcodes

// Exit codes for tsclean
// These codes form the contract with CI scripts and package.json hooks
const (
	Success         = 0 // Successful execution, including a run with nothing to delete
	InvalidConfig   = 2 // Configuration file or command line invalid
	SafetyViolation = 3 // Safety validator blocked a deletion
	RuntimeError    = 4 // Filesystem, lock or history error during execution
)
