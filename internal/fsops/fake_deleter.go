package fsops

// FakeDeleter implements Deleter for testing.
// Records all delete calls without touching the filesystem. When Fail maps a
// path to an error, that call returns it.
type FakeDeleter struct {
	Calls []string
	Fail  map[string]error
}

func (f *FakeDeleter) RemoveAll(path string) error {
	f.Calls = append(f.Calls, "rmall:"+path)
	if err, ok := f.Fail[path]; ok {
		return err
	}
	return nil
}
