// Package agentmap interns agent strings into dense integer ids.
package agentmap

import "github.com/braidhq/braiddb/pkg/types"

// Map is a two-way table between agent strings and dense Agent ids. Ids are
// assigned in insertion order and are stable for the life of the process;
// entries are never removed. The reserved string "ROOT" always resolves to
// types.AgentRoot without being interned.
type Map struct {
	remoteToLocal map[string]types.Agent
	localToRemote []string
}

// New returns an empty Map.
func New() *Map {
	return &Map{remoteToLocal: make(map[string]types.Agent)}
}

// ToLocal returns the Agent id for ext, assigning the next integer and
// interning ext if it hasn't been seen before.
func (m *Map) ToLocal(ext string) types.Agent {
	if ext == types.RootAgentString {
		return types.AgentRoot
	}
	if id, ok := m.remoteToLocal[ext]; ok {
		return id
	}
	id := types.Agent(len(m.localToRemote))
	m.localToRemote = append(m.localToRemote, ext)
	m.remoteToLocal[ext] = id
	return id
}

// TryToLocal looks up ext without mutating the map. It still recognizes
// "ROOT".
func (m *Map) TryToLocal(ext string) (types.Agent, bool) {
	if ext == types.RootAgentString {
		return types.AgentRoot, true
	}
	id, ok := m.remoteToLocal[ext]
	return id, ok
}

// ToRemote returns the agent string for agent. types.AgentRoot maps to
// "ROOT".
func (m *Map) ToRemote(agent types.Agent) string {
	if agent == types.AgentRoot {
		return types.RootAgentString
	}
	return m.localToRemote[agent]
}

// VersionToLocal interns v's agent string and returns the LocalVersion.
func (m *Map) VersionToLocal(v types.RemoteVersion) types.LocalVersion {
	return types.LocalVersion{Agent: m.ToLocal(v.Agent), Seq: v.Seq}
}

// VersionTryToLocal resolves v's agent string without interning it. It
// fails if the agent has never been seen.
func (m *Map) VersionTryToLocal(v types.RemoteVersion) (types.LocalVersion, bool) {
	agent, ok := m.TryToLocal(v.Agent)
	if !ok {
		return types.LocalVersion{}, false
	}
	return types.LocalVersion{Agent: agent, Seq: v.Seq}, true
}

// VersionToRemote translates a LocalVersion back to the wire form.
func (m *Map) VersionToRemote(v types.LocalVersion) types.RemoteVersion {
	return types.RemoteVersion{Agent: m.ToRemote(v.Agent), Seq: v.Seq}
}
