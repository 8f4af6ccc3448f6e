package lifecycle

// mockEngine is a test double for PolicyEngine tracking installed state.
type mockEngine struct {
	calls     []string
	installed bool

	installErr  error
	teardownErr error
	probeErr    error
}

func (m *mockEngine) InstallPolicy(gateways []string) error {
	m.calls = append(m.calls, "install")
	if m.installErr != nil {
		return m.installErr
	}
	m.installed = true
	return nil
}

func (m *mockEngine) TeardownPolicy() error {
	m.calls = append(m.calls, "teardown")
	if m.teardownErr != nil {
		return m.teardownErr
	}
	m.installed = false
	return nil
}

func (m *mockEngine) PolicyInstalled() (bool, error) {
	if m.probeErr != nil {
		return false, m.probeErr
	}
	return m.installed, nil
}

// mockRegistrar is a test double for DNSRegistrar.
type mockRegistrar struct {
	calls       []string
	nameservers []string

	registerErr error
	restoreErr  error
}

func (m *mockRegistrar) Register(nameserver string) error {
	m.calls = append(m.calls, "register")
	m.nameservers = append(m.nameservers, nameserver)
	return m.registerErr
}

func (m *mockRegistrar) Restore() error {
	m.calls = append(m.calls, "restore")
	return m.restoreErr
}
