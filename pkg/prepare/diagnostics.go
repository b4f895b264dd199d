package prepare

// diagnostics accumulates non-fatal notices produced during preparation:
// undefined-variable references left as literals under the Lenient
// policy, and cases like "raw body isn't JSON, extensions ignored".
type diagnostics struct {
	Undefined []string
	Notices   []string
}

func (d *diagnostics) add(undefined []string) {
	d.Undefined = append(d.Undefined, undefined...)
}

func (d *diagnostics) note(msg string) {
	d.Notices = append(d.Notices, msg)
}
