package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/splitlink-protocol/splitlink-go/pkg/log"
)

// Stats holds aggregate statistics about a capture file.
type Stats struct {
	TotalEvents       int
	EventsByLayer     map[log.Layer]int
	EventsByCategory  map[log.Category]int
	EventsByDirection map[log.Direction]int
	Peers             map[string]*PeerStats
	KeyPresses        int
	KeyReleases       int
	Errors            int
	TimeRange         struct {
		Start time.Time
		End   time.Time
	}
}

// PeerStats holds statistics for a single peer.
type PeerStats struct {
	FirstSeen    time.Time
	LastSeen     time.Time
	Events       int
	KeyEvents    int
	LinkSessions map[string]bool
}

// RunStats analyzes the capture file and prints statistics.
func RunStats(path string, w io.Writer) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open capture file: %w", err)
	}
	defer reader.Close()

	stats := &Stats{
		EventsByLayer:     make(map[log.Layer]int),
		EventsByCategory:  make(map[log.Category]int),
		EventsByDirection: make(map[log.Direction]int),
		Peers:             make(map[string]*PeerStats),
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		stats.TotalEvents++
		stats.EventsByLayer[event.Layer]++
		stats.EventsByCategory[event.Category]++
		stats.EventsByDirection[event.Direction]++

		// Track time range
		if stats.TimeRange.Start.IsZero() || event.Timestamp.Before(stats.TimeRange.Start) {
			stats.TimeRange.Start = event.Timestamp
		}
		if event.Timestamp.After(stats.TimeRange.End) {
			stats.TimeRange.End = event.Timestamp
		}

		// Track per-peer stats
		if event.PeerID != "" {
			peer, ok := stats.Peers[event.PeerID]
			if !ok {
				peer = &PeerStats{
					FirstSeen:    event.Timestamp,
					LastSeen:     event.Timestamp,
					LinkSessions: make(map[string]bool),
				}
				stats.Peers[event.PeerID] = peer
			}
			peer.Events++
			if event.Timestamp.After(peer.LastSeen) {
				peer.LastSeen = event.Timestamp
			}
			if event.LinkID != "" {
				peer.LinkSessions[event.LinkID] = true
			}
			if event.Key != nil {
				peer.KeyEvents++
			}
		}

		// Count key transitions
		if event.Key != nil {
			if event.Key.Pressed {
				stats.KeyPresses++
			} else {
				stats.KeyReleases++
			}
		}

		// Count errors
		if event.Error != nil {
			stats.Errors++
		}
	}

	printStats(w, stats)
	return nil
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== Splitlink Capture Statistics ===")
	fmt.Fprintln(w)

	// Time range
	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Second))
		fmt.Fprintln(w)
	}

	// Total events
	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintln(w)

	// Events by layer
	fmt.Fprintln(w, "Events by Layer:")
	for _, layer := range []log.Layer{log.LayerScan, log.LayerWire, log.LayerLink, log.LayerMerge} {
		if count := stats.EventsByLayer[layer]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", layer.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	// Events by category
	fmt.Fprintln(w, "Events by Category:")
	for _, cat := range []log.Category{log.CategoryFrame, log.CategoryKey, log.CategoryState, log.CategoryError} {
		if count := stats.EventsByCategory[cat]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", cat.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	// Events by direction
	fmt.Fprintln(w, "Events by Direction:")
	for _, dir := range []log.Direction{log.DirectionIn, log.DirectionOut} {
		if count := stats.EventsByDirection[dir]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", dir.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	// Key transitions
	if stats.KeyPresses > 0 || stats.KeyReleases > 0 {
		fmt.Fprintf(w, "Key Transitions: %d pressed, %d released\n", stats.KeyPresses, stats.KeyReleases)
		fmt.Fprintln(w)
	}

	// Peers
	fmt.Fprintf(w, "Peers: %d\n", len(stats.Peers))
	if len(stats.Peers) > 0 {
		// Sort by first seen time
		type peerInfo struct {
			id    string
			stats *PeerStats
		}
		peers := make([]peerInfo, 0, len(stats.Peers))
		for id, ps := range stats.Peers {
			peers = append(peers, peerInfo{id, ps})
		}
		sort.Slice(peers, func(i, j int) bool {
			return peers[i].stats.FirstSeen.Before(peers[j].stats.FirstSeen)
		})

		fmt.Fprintln(w, "")
		for _, p := range peers {
			duration := p.stats.LastSeen.Sub(p.stats.FirstSeen).Round(time.Millisecond)
			fmt.Fprintf(w, "  [%s] %d events, duration %s\n", p.id, p.stats.Events, duration)
			fmt.Fprintf(w, "           Link sessions: %d\n", len(p.stats.LinkSessions))
			if p.stats.KeyEvents > 0 {
				fmt.Fprintf(w, "           Key events: %d\n", p.stats.KeyEvents)
			}
		}
	}

	// Errors
	if stats.Errors > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Errors: %d\n", stats.Errors)
	}
}
