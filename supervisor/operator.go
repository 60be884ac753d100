package supervisor

// The single-character operator verbs the server recognizes. Reading them
// off the operator's input stream and prompting for the 'E' file paths is
// handled by the caller (cmd/concurrentkv); Supervisor only reacts to an
// already-parsed verb.
const (
	VerbCreateWindowed byte = 'e'
	VerbCreateFile     byte = 'E'
	VerbPause          byte = 's'
	VerbResume         byte = 'g'
	VerbJoin           byte = 'w'
)

// IsOperatorVerb reports whether b is one of the five recognized menu
// verbs. Anything else produces "Invalid Command" at the caller.
func IsOperatorVerb(b byte) bool {
	switch b {
	case VerbCreateWindowed, VerbCreateFile, VerbPause, VerbResume, VerbJoin:
		return true
	default:
		return false
	}
}

// DispatchSimple handles the three operator verbs that need no further
// input from the operator ('s', 'g', 'w'). It reports whether it handled
// the verb; 'e' and 'E' need extra arguments (a reader/writer pair, or a
// pair of file paths) and so are left to the caller to route to
// CreateWindowed/CreateFile directly.
func (sup *Supervisor) DispatchSimple(verb byte) bool {
	switch verb {
	case VerbPause:
		sup.Pause()
	case VerbResume:
		sup.Resume()
	case VerbJoin:
		sup.Join()
	default:
		return false
	}
	return true
}
