package types

import "sort"

// ThreadGroup is an ephemeral grouping of messages sharing a thread root,
// including the root itself when present. Derived per pipeline run, never
// persisted.
type ThreadGroup struct {
	RootID   string
	Messages []*ChannelMessage
}

// Root returns the group's root message, or nil when the root could not
// be hydrated (extraction then proceeds without parent context).
func (g *ThreadGroup) Root() *ChannelMessage {
	for _, m := range g.Messages {
		if m.ID == g.RootID {
			return m
		}
	}
	return nil
}

// GroupByThread partitions messages into thread groups keyed by root ID.
// Standalone messages form single-member groups. Within a group messages
// are ordered by ID (the platform timestamp token), and groups are ordered
// by root ID, so output is deterministic regardless of input order.
func GroupByThread(messages []*ChannelMessage) []*ThreadGroup {
	byRoot := make(map[string]*ThreadGroup)
	var order []string
	for _, m := range messages {
		root := m.RootID()
		g, ok := byRoot[root]
		if !ok {
			g = &ThreadGroup{RootID: root}
			byRoot[root] = g
			order = append(order, root)
		}
		g.Messages = append(g.Messages, m)
	}

	sort.Strings(order)
	groups := make([]*ThreadGroup, 0, len(order))
	for _, root := range order {
		g := byRoot[root]
		sort.Slice(g.Messages, func(i, j int) bool {
			return g.Messages[i].ID < g.Messages[j].ID
		})
		groups = append(groups, g)
	}
	return groups
}
