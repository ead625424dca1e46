package device

// Verb is the operation a command performs on a device resource
type Verb string

const (
	VerbAdd    Verb = "add"
	VerbSet    Verb = "set"
	VerbRemove Verb = "remove"
	VerbPrint  Verb = "print"
)

// Command is one atomic instruction against a device resource path,
// e.g. {VerbAdd, "/ppp/secret", {"name": "john", ...}}
type Command struct {
	Verb   Verb
	Path   string
	Params map[string]string
	// Query entries apply to print commands as ?key=value filters
	Query map[string]string
}

// Reply is the decoded result of a command. For add commands ID carries the
// identifier the device assigned to the created object.
type Reply struct {
	ID string
	// Rows holds one attribute map per returned re-sentence (print results)
	Rows []map[string]string
}

// First returns the first row of a print reply, or nil
func (r *Reply) First() map[string]string {
	if len(r.Rows) == 0 {
		return nil
	}
	return r.Rows[0]
}
