package content

import (
	"fmt"

	"mediahub/pkg/domain"
)

// GetAllTalent returns a copy of the talent roster in insertion order.
func (s *Store) GetAllTalent() []domain.TalentProfile {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.TalentProfile, len(s.talent))
	copy(out, s.talent)
	return out
}

// GetTalent looks up a talent profile by id.
func (s *Store) GetTalent(id string) (domain.TalentProfile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.talent {
		if t.ID == id {
			return t, true
		}
	}
	return domain.TalentProfile{}, false
}

// AddTalent assigns a fresh id to profile and appends it to the roster.
func (s *Store) AddTalent(profile domain.TalentProfile) domain.TalentProfile {
	s.mu.Lock()
	defer s.mu.Unlock()
	profile.ID = s.newID()
	if profile.Tags == nil {
		profile.Tags = []string{}
	}
	s.talent = append(s.talent, profile)
	s.persist()
	return profile
}

// UpdateTalent applies patch to the profile with the given id.
func (s *Store) UpdateTalent(id string, patch domain.TalentPatch) (domain.TalentProfile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.talent {
		if t.ID == id {
			s.talent[i] = patch.Apply(t)
			s.persist()
			return s.talent[i], true
		}
	}
	s.persist()
	return domain.TalentProfile{}, false
}

// DeleteTalent removes a profile and reports whether it existed.
func (s *Store) DeleteTalent(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.talent {
		if t.ID == id {
			s.talent = append(s.talent[:i], s.talent[i+1:]...)
			s.persist()
			return true
		}
	}
	s.persist()
	return false
}

// RequestBooking records a booking request against a talent profile and
// notifies the requester. An empty userID addresses the guest feed.
func (s *Store) RequestBooking(userID, talentID string) (domain.Notification, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.talent {
		if t.ID != talentID {
			continue
		}
		if userID == "" {
			userID = domain.GuestUserID
		}
		n := s.addNotification(userID, domain.NotifyBooking, fmt.Sprintf("Booking request sent to %s. Pending confirmation.", t.Name))
		s.persist()
		return n, true
	}
	return domain.Notification{}, false
}

// GetSiteSettings returns a copy of the current site settings.
func (s *Store) GetSiteSettings() domain.SiteSettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copySettings(s.settings)
}

// UpdateSiteSettings merges patch into the site settings and returns the result.
func (s *Store) UpdateSiteSettings(patch domain.SettingsPatch) domain.SiteSettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = patch.Apply(s.settings)
	s.persist()
	return copySettings(s.settings)
}

func copySettings(in domain.SiteSettings) domain.SiteSettings {
	if in.FeaturedMediaID != nil {
		id := *in.FeaturedMediaID
		in.FeaturedMediaID = &id
	}
	return in
}
