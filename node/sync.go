package node

import "math"

// updateNeighbor implements spec.md §4.4's neighbor-table update rule:
// record (my_time, sender_time), append to the rolling window capped
// at NeighborWindow (FIFO), and remember the pair as the last meeting.
func (n *Node) updateNeighbor(sender int, senderTimeMs int64) {
	myTime := n.LocalTime()
	entry, ok := n.neighbors[sender]
	if !ok {
		entry = &neighborEntry{}
		n.neighbors[sender] = entry
		n.neighborOrder = append(n.neighborOrder, sender)
	}

	entry.points = append(entry.points, meetPoint{mine: myTime, their: senderTimeMs})
	if len(entry.points) > n.cfg.NeighborWindow {
		entry.points = entry.points[1:]
	}
	entry.lastMeetMine = myTime
	entry.lastMeetTheir = senderTimeMs
}

// estimateDrift implements spec.md §4.6: an OLS slope of peer time on
// this node's time over the rolling window, falling back to 1.0 for
// every degenerate case (too few points, singular fit, or a slope
// outside the valid (0, 2] range).
func (n *Node) estimateDrift(peer int) float64 {
	entry, ok := n.neighbors[peer]
	if !ok || len(entry.points) < 2 {
		return 1.0
	}

	var sumX, sumY, sumXY, sumXX float64
	count := float64(len(entry.points))
	for _, p := range entry.points {
		x := float64(p.mine)
		y := float64(p.their)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	denominator := count*sumXX - sumX*sumX
	if denominator == 0 {
		return 1.0
	}

	slope := (count*sumXY - sumX*sumY) / denominator
	if slope <= 0 || slope > 2.0 {
		return 1.0
	}
	return slope
}

// soonestSync implements spec.md §4.5. peer < 0 means "no specific
// peer": return the minimum positive delta across all neighbors, or
// math.MaxInt64 if there are none or none are upcoming. With a
// specific peer id, return that peer's delta even if negative (an
// overdue rendezvous).
func (n *Node) soonestSync(peer int) int64 {
	currentTime := n.LocalTime()
	var soonest int64 = math.MaxInt64

	for _, id := range n.neighborOrder {
		entry := n.neighbors[id]
		driftRate := n.estimateDrift(id)
		mySyncTime := float64(entry.lastMeetMine)/driftRate + float64(n.cfg.SyncIntervalMs) - float64(n.cfg.SyncTimeMs)/2
		meetIn := int64(mySyncTime) - currentTime

		if id == peer {
			return meetIn
		}
		if meetIn > 0 && meetIn < soonest {
			soonest = meetIn
		}
	}
	return soonest
}

// upcomingSyncPartners implements spec.md §4.5's rendezvous-window
// selection: every peer whose derived sync time falls within
// [soonest, soonest + SYNC_TIME].
func (n *Node) upcomingSyncPartners() []int {
	soonest := n.soonestSync(-1)
	if soonest == math.MaxInt64 {
		return nil
	}

	currentTime := n.LocalTime()
	var result []int
	for _, id := range n.neighborOrder {
		entry := n.neighbors[id]
		driftRate := n.estimateDrift(id)
		mySyncTime := float64(entry.lastMeetMine)/driftRate + float64(n.cfg.SyncIntervalMs) - float64(n.cfg.SyncTimeMs)/2
		meetIn := int64(mySyncTime) - currentTime

		if meetIn >= soonest && meetIn <= soonest+n.cfg.SyncTimeMs {
			result = append(result, id)
		}
	}
	return result
}
