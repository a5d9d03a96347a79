package tilecs

// noCopy makes "go vet" complain when a Manager is copied by value.
// A copy would share pools with the original but not its directory.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}
