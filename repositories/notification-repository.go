package repositories

import (
	"fmt"
	"time"

	"github.com/gocql/gocql"

	"worksense/backend/logging"
	"worksense/backend/models"
)

// NotificationRepo stores user notifications in Cassandra, clustered per
// username with the newest first.
type NotificationRepo struct {
	session *gocql.Session
}

// NewNotificationRepo connects to Cassandra and bootstraps the keyspace and
// table.
func NewNotificationRepo(host string) (*NotificationRepo, error) {
	cluster := gocql.NewCluster(host)
	cluster.Keyspace = "system"
	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to cassandra: %w", err)
	}

	err = session.Query(
		`CREATE KEYSPACE IF NOT EXISTS worksense
		 WITH replication = {
			 'class': 'SimpleStrategy',
			 'replication_factor': 1
		 }`).Exec()
	if err != nil {
		session.Close()
		return nil, fmt.Errorf("failed to create keyspace: %w", err)
	}
	session.Close()

	cluster.Keyspace = "worksense"
	cluster.Consistency = gocql.One
	session, err = cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to worksense keyspace: %w", err)
	}

	err = session.Query(
		`CREATE TABLE IF NOT EXISTS notifications (
			id UUID,
			username TEXT,
			message TEXT,
			created_at TIMESTAMP,
			is_read BOOLEAN,
			PRIMARY KEY ((username), created_at, id)
		) WITH CLUSTERING ORDER BY (created_at DESC, id ASC)`).Exec()
	if err != nil {
		session.Close()
		return nil, fmt.Errorf("failed to create notifications table: %w", err)
	}

	logging.Logger.Info("Event ID: CASSANDRA_CONNECTED, Description: Connected to Cassandra worksense keyspace.")
	return &NotificationRepo{session: session}, nil
}

func (nr *NotificationRepo) CloseSession() {
	nr.session.Close()
}

// CreateNotification inserts one notification for a user.
func (nr *NotificationRepo) CreateNotification(notification *models.Notification) error {
	if notification.ID == "" {
		notification.ID = gocql.TimeUUID().String()
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now().UTC()
	}

	return nr.session.Query(
		`INSERT INTO notifications (id, username, message, created_at, is_read)
		 VALUES (?, ?, ?, ?, ?)`,
		notification.ID, notification.Username, notification.Message,
		notification.CreatedAt, notification.IsRead,
	).Exec()
}

// GetNotificationsByUsername lists a user's notifications, newest first.
func (nr *NotificationRepo) GetNotificationsByUsername(username string) ([]models.Notification, error) {
	iter := nr.session.Query(
		`SELECT id, username, message, created_at, is_read
		 FROM notifications WHERE username = ?`,
		username,
	).Iter()

	notifications := []models.Notification{}
	var n models.Notification
	for iter.Scan(&n.ID, &n.Username, &n.Message, &n.CreatedAt, &n.IsRead) {
		notifications = append(notifications, n)
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("failed to fetch notifications: %w", err)
	}
	return notifications, nil
}

// MarkAsRead flips one notification's read flag. The clustering key
// requires the original created_at, so the row is located first.
func (nr *NotificationRepo) MarkAsRead(username, id string) error {
	var createdAt time.Time
	var foundID string
	iter := nr.session.Query(
		`SELECT id, created_at FROM notifications WHERE username = ?`,
		username,
	).Iter()

	found := false
	for iter.Scan(&foundID, &createdAt) {
		if foundID == id {
			found = true
			break
		}
	}
	if err := iter.Close(); err != nil {
		return fmt.Errorf("failed to locate notification: %w", err)
	}
	if !found {
		return fmt.Errorf("notification %s not found", id)
	}

	return nr.session.Query(
		`UPDATE notifications SET is_read = true
		 WHERE username = ? AND created_at = ? AND id = ?`,
		username, createdAt, id,
	).Exec()
}
