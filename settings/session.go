// Copyright (C) 2025-2026 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package settings

// Session memoizes one proxy per scope node for the length of a unit of
// work, typically a request. Like proxies, sessions are not safe for
// concurrent use.
type Session struct {
	h       *Hierarchy
	proxies map[sessionKey]*Proxy
}

type sessionKey struct {
	kind string
	id   string
}

// NewSession starts a unit of work.
func (h *Hierarchy) NewSession() *Session {
	return &Session{h: h, proxies: map[sessionKey]*Proxy{}}
}

// Settings returns the proxy of node, creating it on first use.
func (s *Session) Settings(node Node) (*Proxy, error) {
	if isNilNode(node) {
		return s.h.newProxy(node, s)
	}
	kind, _ := scopeKind(node)
	key := sessionKey{kind: kind, id: node.ScopeID()}
	if p, ok := s.proxies[key]; ok {
		return p, nil
	}
	p, err := s.h.newProxy(node, s)
	if err != nil {
		return nil, err
	}
	s.proxies[key] = p
	return p, nil
}
