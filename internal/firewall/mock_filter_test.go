package firewall

import (
	"fmt"
	"strings"
)

// mockFilter is an in-memory test double for one address family's
// PacketFilter, mirroring iptables semantics closely enough for the engine:
// chains hold ordered rule strings, probes never mutate, and deleting a
// missing chain or rule errors.
type mockFilter struct {
	chains map[string][]string
	ops    []string

	// Error injection.
	newChainErr error
	appendErr   error
	insertErr   error
	deleteErr   error
	clearErr    error
	delChainErr error
	probeErr    error
}

func newMockFilter() *mockFilter {
	return &mockFilter{
		chains: map[string][]string{outputChain: {}},
	}
}

func key(rulespec []string) string { return strings.Join(rulespec, " ") }

func (m *mockFilter) record(op string) { m.ops = append(m.ops, op) }

func (m *mockFilter) ChainExists(table, chain string) (bool, error) {
	if m.probeErr != nil {
		return false, m.probeErr
	}
	_, ok := m.chains[chain]
	return ok, nil
}

func (m *mockFilter) NewChain(table, chain string) error {
	m.record("new-chain " + chain)
	if m.newChainErr != nil {
		return m.newChainErr
	}
	if _, ok := m.chains[chain]; ok {
		return fmt.Errorf("chain %s already exists", chain)
	}
	m.chains[chain] = []string{}
	return nil
}

func (m *mockFilter) ClearChain(table, chain string) error {
	m.record("clear-chain " + chain)
	if m.clearErr != nil {
		return m.clearErr
	}
	m.chains[chain] = []string{}
	return nil
}

func (m *mockFilter) DeleteChain(table, chain string) error {
	m.record("delete-chain " + chain)
	if m.delChainErr != nil {
		return m.delChainErr
	}
	rules, ok := m.chains[chain]
	if !ok {
		return fmt.Errorf("chain %s does not exist", chain)
	}
	if len(rules) > 0 {
		return fmt.Errorf("chain %s is not empty", chain)
	}
	delete(m.chains, chain)
	return nil
}

func (m *mockFilter) Exists(table, chain string, rulespec ...string) (bool, error) {
	if m.probeErr != nil {
		return false, m.probeErr
	}
	for _, r := range m.chains[chain] {
		if r == key(rulespec) {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockFilter) Insert(table, chain string, pos int, rulespec ...string) error {
	m.record("insert " + chain + " " + key(rulespec))
	if m.insertErr != nil {
		return m.insertErr
	}
	rules, ok := m.chains[chain]
	if !ok {
		return fmt.Errorf("chain %s does not exist", chain)
	}
	idx := pos - 1
	if idx < 0 || idx > len(rules) {
		return fmt.Errorf("invalid position %d", pos)
	}
	rules = append(rules[:idx], append([]string{key(rulespec)}, rules[idx:]...)...)
	m.chains[chain] = rules
	return nil
}

func (m *mockFilter) Append(table, chain string, rulespec ...string) error {
	m.record("append " + chain + " " + key(rulespec))
	if m.appendErr != nil {
		return m.appendErr
	}
	if _, ok := m.chains[chain]; !ok {
		return fmt.Errorf("chain %s does not exist", chain)
	}
	m.chains[chain] = append(m.chains[chain], key(rulespec))
	return nil
}

func (m *mockFilter) Delete(table, chain string, rulespec ...string) error {
	m.record("delete " + chain + " " + key(rulespec))
	if m.deleteErr != nil {
		return m.deleteErr
	}
	rules, ok := m.chains[chain]
	if !ok {
		return fmt.Errorf("chain %s does not exist", chain)
	}
	for i, r := range rules {
		if r == key(rulespec) {
			m.chains[chain] = append(rules[:i], rules[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("no matching rule in %s", chain)
}

// ruleCount returns the number of rules across all chains.
func (m *mockFilter) ruleCount() int {
	n := 0
	for _, rules := range m.chains {
		n += len(rules)
	}
	return n
}

// mockNetInfo is a fixed-answer test double for NetInfo.
type mockNetInfo struct {
	device string
	devErr error

	v4Subnet string
	v4OK     bool
	v6Subnet string
	v6OK     bool
	subErr   error
}

func (m *mockNetInfo) DefaultDevice() (string, error) {
	return m.device, m.devErr
}

func (m *mockNetInfo) LocalSubnet(family Family, device string) (string, bool, error) {
	if m.subErr != nil {
		return "", false, m.subErr
	}
	if family == IPv6 {
		return m.v6Subnet, m.v6OK, nil
	}
	return m.v4Subnet, m.v4OK, nil
}
