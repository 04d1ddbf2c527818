package content

import (
	"fmt"

	"mediahub/pkg/domain"
)

const commentPreviewLen = 20

// GetComments returns the comments on mediaID, newest first.
func (s *Store) GetComments(mediaID string) []domain.Comment {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.Comment{}
	for _, c := range s.comments {
		if c.MediaID == mediaID {
			out = append(out, c)
		}
	}
	return out
}

// AddComment prepends the comment and notifies the media owner when the media exists.
func (s *Store) AddComment(c domain.Comment) domain.Comment {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.newID()
	c.CreatedAt = domain.JustNow
	c.Likes = 0
	s.comments = append([]domain.Comment{c}, s.comments...)
	if i := s.mediaIndex(c.MediaID); i >= 0 {
		preview := []rune(c.Text)
		if len(preview) > commentPreviewLen {
			preview = preview[:commentPreviewLen]
		}
		s.addNotification(s.media[i].UserID, domain.NotifyComment,
			fmt.Sprintf(`%s commented on your post: "%s..."`, c.UserName, string(preview)))
	}
	s.persist()
	return c
}

// GetNotifications returns the user's and broadcast notifications, newest first.
func (s *Store) GetNotifications(userID string) []domain.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.Notification{}
	for i := len(s.notifs) - 1; i >= 0; i-- {
		if visibleTo(s.notifs[i], userID) {
			out = append(out, s.notifs[i])
		}
	}
	return out
}

// UnreadCount counts unread notifications visible to userID.
func (s *Store) UnreadCount(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, notif := range s.notifs {
		if !notif.Read && visibleTo(notif, userID) {
			n++
		}
	}
	return n
}

// AddNotification appends a notification for userID.
func (s *Store) AddNotification(userID string, typ domain.NotificationType, message string) domain.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.addNotification(userID, typ, message)
	s.persist()
	return n
}

// MarkNotificationRead flags one notification as read and reports whether it exists.
func (s *Store) MarkNotificationRead(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	found := false
	for i := range s.notifs {
		if s.notifs[i].ID == id {
			s.notifs[i].Read = true
			found = true
		}
	}
	s.persist()
	return found
}

// MarkAllNotificationsRead marks every notification visible to userID as read
// and returns how many changed.
func (s *Store) MarkAllNotificationsRead(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := 0
	for i := range s.notifs {
		if !s.notifs[i].Read && visibleTo(s.notifs[i], userID) {
			s.notifs[i].Read = true
			changed++
		}
	}
	s.persist()
	return changed
}

func visibleTo(n domain.Notification, userID string) bool {
	return n.UserID == userID || n.UserID == domain.GuestUserID
}
