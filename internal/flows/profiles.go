package flows

// ProfileRows returns name, mutex name and executable of every built-in
// profile, unexpanded.
func (d *Dependencies) ProfileRows() ([][3]string, error) {
	var rows [][3]string

	for _, name := range d.Registry.ListProfiles() {
		p, err := d.Registry.GetProfile(name)
		if err != nil {
			return nil, err
		}

		rows = append(rows, [3]string{p.Name, p.MutexName, p.Executable})
	}

	return rows, nil
}
