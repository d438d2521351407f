package minutes

import "match-analyzer/internal/storage"

// ExtractSubstitutions flattens the up-to-3 substitution slots of both team
// sheets into a uniform event list. A slot whose incoming player is missing
// is treated as unused and dropped silently; not every match uses all slots.
func ExtractSubstitutions(matches []storage.MatchRecord) []SubstitutionEvent {
	var subs []SubstitutionEvent
	for i := range matches {
		m := &matches[i]
		for _, sheet := range []*storage.TeamSheet{&m.Home, &m.Away} {
			for _, slot := range sheet.Slots() {
				if slot == nil || slot.PlayerIn == nil {
					continue
				}
				sub := SubstitutionEvent{
					MatchID:    m.MatchID,
					TeamID:     sheet.TeamID,
					PlayerInID: *slot.PlayerIn,
					Minute:     slot.Minute,
				}
				if slot.PlayerOut != nil {
					sub.PlayerOutID = *slot.PlayerOut
				}
				subs = append(subs, sub)
			}
		}
	}
	return subs
}
