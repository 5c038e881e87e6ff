package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"estate-video-backend/internal/models"
)

// ErrNotFound is returned when a referenced row does not exist.
var ErrNotFound = errors.New("not found")

type Store struct {
	db *sql.DB
}

func New(connectionString string) (*Store, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func notFoundOr(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("failed to get %s: %w", what, err)
}

// ---------------- Orders ----------------

func (s *Store) CreateOrder(order *models.Order) error {
	err := s.db.QueryRow(`
		INSERT INTO orders (user_id, package, add_ons, parent_order_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, order.UserID, order.Package, order.AddOns, order.ParentOrderID).Scan(&order.ID, &order.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

func (s *Store) GetOrder(orderID int64) (*models.Order, error) {
	var order models.Order
	err := s.db.QueryRow(`
		SELECT id, user_id, package, add_ons, parent_order_id, created_at
		FROM orders
		WHERE id = $1
	`, orderID).Scan(
		&order.ID, &order.UserID, &order.Package, &order.AddOns,
		&order.ParentOrderID, &order.CreatedAt,
	)
	if err != nil {
		return nil, notFoundOr(err, "order")
	}
	return &order, nil
}

func (s *Store) ListOrders() ([]models.Order, error) {
	rows, err := s.db.Query(`
		SELECT id, user_id, package, add_ons, parent_order_id, created_at
		FROM orders
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	return scanOrders(rows)
}

func (s *Store) ListOrdersByUser(userID int64) ([]models.Order, error) {
	rows, err := s.db.Query(`
		SELECT id, user_id, package, add_ons, parent_order_id, created_at
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	return scanOrders(rows)
}

func scanOrders(rows *sql.Rows) ([]models.Order, error) {
	var orders []models.Order
	for rows.Next() {
		var order models.Order
		err := rows.Scan(
			&order.ID, &order.UserID, &order.Package, &order.AddOns,
			&order.ParentOrderID, &order.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

// ---------------- Uploaded images ----------------

func (s *Store) CreateUploadedImage(img *models.UploadedImage) error {
	err := s.db.QueryRow(`
		INSERT INTO uploaded_images (order_id, filename, stored_filename)
		VALUES ($1, $2, $3)
		RETURNING id, upload_time
	`, img.OrderID, img.Filename, img.StoredFilename).Scan(&img.ID, &img.UploadTime)
	if err != nil {
		return fmt.Errorf("failed to create uploaded image: %w", err)
	}
	return nil
}

func (s *Store) GetUploadedImage(imageID int64) (*models.UploadedImage, error) {
	var img models.UploadedImage
	err := s.db.QueryRow(`
		SELECT id, order_id, filename, stored_filename, prompt, video_path, video_url, upload_time, video_generated_at
		FROM uploaded_images
		WHERE id = $1
	`, imageID).Scan(
		&img.ID, &img.OrderID, &img.Filename, &img.StoredFilename, &img.Prompt,
		&img.VideoPath, &img.VideoURL, &img.UploadTime, &img.VideoGeneratedAt,
	)
	if err != nil {
		return nil, notFoundOr(err, "image")
	}
	return &img, nil
}

func (s *Store) ListImagesByOrder(orderID int64) ([]models.UploadedImage, error) {
	rows, err := s.db.Query(`
		SELECT id, order_id, filename, stored_filename, prompt, video_path, video_url, upload_time, video_generated_at
		FROM uploaded_images
		WHERE order_id = $1
		ORDER BY id ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	defer rows.Close()

	var images []models.UploadedImage
	for rows.Next() {
		var img models.UploadedImage
		err := rows.Scan(
			&img.ID, &img.OrderID, &img.Filename, &img.StoredFilename, &img.Prompt,
			&img.VideoPath, &img.VideoURL, &img.UploadTime, &img.VideoGeneratedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan image: %w", err)
		}
		images = append(images, img)
	}
	return images, rows.Err()
}

func (s *Store) UpdateImagePrompt(imageID int64, prompt string) error {
	_, err := s.db.Exec(`
		UPDATE uploaded_images
		SET prompt = $1
		WHERE id = $2
	`, prompt, imageID)
	return err
}

// SetImageVideo mirrors the latest succeeded video's output onto the
// owning image row for read convenience.
func (s *Store) SetImageVideo(imageID int64, videoPath, videoURL string, generatedAt time.Time) error {
	_, err := s.db.Exec(`
		UPDATE uploaded_images
		SET video_path = $1, video_url = NULLIF($2, ''), video_generated_at = $3
		WHERE id = $4
	`, videoPath, videoURL, generatedAt, imageID)
	return err
}

// ---------------- Videos ----------------

func (s *Store) CreateVideo(v *models.Video) error {
	if v.Iteration == 0 {
		v.Iteration = 1
	}
	if v.Status == "" {
		v.Status = models.StatusQueued
	}
	err := s.db.QueryRow(`
		INSERT INTO videos (image_id, prompt, remote_job_id, status, video_path, video_url, parent_video_id, iteration)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`, v.ImageID, v.Prompt, v.RemoteJobID, v.Status, v.VideoPath, v.VideoURL,
		v.ParentVideoID, v.Iteration).Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create video: %w", err)
	}
	return nil
}

func (s *Store) GetVideo(videoID int64) (*models.Video, error) {
	var v models.Video
	err := s.db.QueryRow(`
		SELECT id, image_id, prompt, remote_job_id, status, video_path, video_url, parent_video_id, iteration, created_at, updated_at
		FROM videos
		WHERE id = $1
	`, videoID).Scan(
		&v.ID, &v.ImageID, &v.Prompt, &v.RemoteJobID, &v.Status,
		&v.VideoPath, &v.VideoURL, &v.ParentVideoID, &v.Iteration,
		&v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return nil, notFoundOr(err, "video")
	}
	return &v, nil
}

// LatestVideoForImage returns the current video iteration for an image:
// max iteration, tie-broken by highest id.
func (s *Store) LatestVideoForImage(imageID int64) (*models.Video, error) {
	var v models.Video
	err := s.db.QueryRow(`
		SELECT id, image_id, prompt, remote_job_id, status, video_path, video_url, parent_video_id, iteration, created_at, updated_at
		FROM videos
		WHERE image_id = $1
		ORDER BY iteration DESC, id DESC
		LIMIT 1
	`, imageID).Scan(
		&v.ID, &v.ImageID, &v.Prompt, &v.RemoteJobID, &v.Status,
		&v.VideoPath, &v.VideoURL, &v.ParentVideoID, &v.Iteration,
		&v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return nil, notFoundOr(err, "video")
	}
	return &v, nil
}

// ListLatestVideosByOrder returns the current video per image for all
// images belonging to an order.
func (s *Store) ListLatestVideosByOrder(orderID int64) ([]models.Video, error) {
	rows, err := s.db.Query(`
		SELECT DISTINCT ON (v.image_id)
			v.id, v.image_id, v.prompt, v.remote_job_id, v.status, v.video_path, v.video_url,
			v.parent_video_id, v.iteration, v.created_at, v.updated_at
		FROM videos v
		JOIN uploaded_images i ON i.id = v.image_id
		WHERE i.order_id = $1
		ORDER BY v.image_id, v.iteration DESC, v.id DESC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}
	defer rows.Close()

	var videos []models.Video
	for rows.Next() {
		var v models.Video
		err := rows.Scan(
			&v.ID, &v.ImageID, &v.Prompt, &v.RemoteJobID, &v.Status,
			&v.VideoPath, &v.VideoURL, &v.ParentVideoID, &v.Iteration,
			&v.CreatedAt, &v.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan video: %w", err)
		}
		videos = append(videos, v)
	}
	return videos, rows.Err()
}

func (s *Store) UpdateVideoStatus(videoID int64, status models.VideoStatus) error {
	_, err := s.db.Exec(`
		UPDATE videos
		SET status = $1, updated_at = NOW()
		WHERE id = $2
	`, status, videoID)
	return err
}

// MarkVideoProcessing records the remote job id the instant the provider
// acknowledges the submission.
func (s *Store) MarkVideoProcessing(videoID int64, remoteJobID string) error {
	_, err := s.db.Exec(`
		UPDATE videos
		SET status = $1, remote_job_id = $2, updated_at = NOW()
		WHERE id = $3
	`, models.StatusProcessing, remoteJobID, videoID)
	return err
}

func (s *Store) UpdateVideoResult(videoID int64, status models.VideoStatus, videoPath, videoURL, remoteJobID string) error {
	_, err := s.db.Exec(`
		UPDATE videos
		SET status = $1,
		    video_path = NULLIF($2, ''),
		    video_url = NULLIF($3, ''),
		    remote_job_id = COALESCE(NULLIF($4, ''), remote_job_id),
		    updated_at = NOW()
		WHERE id = $5
	`, status, videoPath, videoURL, remoteJobID, videoID)
	return err
}

// ---------------- Feedback ----------------

func (s *Store) CreateFeedback(f *models.Feedback) error {
	err := s.db.QueryRow(`
		INSERT INTO feedback (video_id, feedback_text, new_prompt)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, f.VideoID, f.FeedbackText, f.NewPrompt).Scan(&f.ID, &f.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create feedback: %w", err)
	}
	return nil
}

// ---------------- Invoices ----------------

func (s *Store) CreateInvoice(inv *models.Invoice) error {
	err := s.db.QueryRow(`
		INSERT INTO invoices (order_id, user_id, amount)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, inv.OrderID, inv.UserID, inv.Amount).Scan(&inv.ID, &inv.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create invoice: %w", err)
	}
	return nil
}

func (s *Store) GetInvoice(invoiceID int64) (*models.Invoice, error) {
	var inv models.Invoice
	err := s.db.QueryRow(`
		SELECT id, order_id, user_id, amount, is_paid, paid_at, created_at
		FROM invoices
		WHERE id = $1
	`, invoiceID).Scan(
		&inv.ID, &inv.OrderID, &inv.UserID, &inv.Amount,
		&inv.IsPaid, &inv.PaidAt, &inv.CreatedAt,
	)
	if err != nil {
		return nil, notFoundOr(err, "invoice")
	}
	return &inv, nil
}

func (s *Store) GetInvoiceByOrder(orderID int64) (*models.Invoice, error) {
	var inv models.Invoice
	err := s.db.QueryRow(`
		SELECT id, order_id, user_id, amount, is_paid, paid_at, created_at
		FROM invoices
		WHERE order_id = $1
	`, orderID).Scan(
		&inv.ID, &inv.OrderID, &inv.UserID, &inv.Amount,
		&inv.IsPaid, &inv.PaidAt, &inv.CreatedAt,
	)
	if err != nil {
		return nil, notFoundOr(err, "invoice")
	}
	return &inv, nil
}

func (s *Store) ListInvoicesByUser(userID int64) ([]models.Invoice, error) {
	rows, err := s.db.Query(`
		SELECT id, order_id, user_id, amount, is_paid, paid_at, created_at
		FROM invoices
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()

	var invoices []models.Invoice
	for rows.Next() {
		var inv models.Invoice
		err := rows.Scan(
			&inv.ID, &inv.OrderID, &inv.UserID, &inv.Amount,
			&inv.IsPaid, &inv.PaidAt, &inv.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

func (s *Store) MarkInvoicePaid(invoiceID int64, paidAt time.Time) error {
	_, err := s.db.Exec(`
		UPDATE invoices
		SET is_paid = TRUE, paid_at = $1
		WHERE id = $2
	`, paidAt, invoiceID)
	return err
}

// ---------------- Users ----------------

func (s *Store) CreateUser(user *models.User) error {
	err := s.db.QueryRow(`
		INSERT INTO users (email, password_hash, is_guest)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, user.Email, user.PasswordHash, user.IsGuest).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *Store) GetUser(userID int64) (*models.User, error) {
	var user models.User
	err := s.db.QueryRow(`
		SELECT id, email, password_hash, is_guest, is_admin, created_at
		FROM users
		WHERE id = $1
	`, userID).Scan(&user.ID, &user.Email, &user.PasswordHash, &user.IsGuest, &user.IsAdmin, &user.CreatedAt)
	if err != nil {
		return nil, notFoundOr(err, "user")
	}
	return &user, nil
}

// FindUserByEmail returns (nil, nil) when no user carries the email.
func (s *Store) FindUserByEmail(email string) (*models.User, error) {
	var user models.User
	err := s.db.QueryRow(`
		SELECT id, email, password_hash, is_guest, is_admin, created_at
		FROM users
		WHERE email = $1
	`, email).Scan(&user.ID, &user.Email, &user.PasswordHash, &user.IsGuest, &user.IsAdmin, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}

// UpgradeGuestUser converts a guest account into a full account.
func (s *Store) UpgradeGuestUser(userID int64, email, passwordHash string) error {
	_, err := s.db.Exec(`
		UPDATE users
		SET email = $1, password_hash = $2, is_guest = FALSE
		WHERE id = $3
	`, email, passwordHash, userID)
	return err
}

// ---------------- Notifications ----------------

func (s *Store) CreateNotification(n *models.Notification) error {
	err := s.db.QueryRow(`
		INSERT INTO notifications (user_id, category, message)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, n.UserID, n.Category, n.Message).Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

func (s *Store) ListNotificationsByUser(userID int64) ([]models.Notification, error) {
	rows, err := s.db.Query(`
		SELECT id, user_id, category, message, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		var n models.Notification
		err := rows.Scan(&n.ID, &n.UserID, &n.Category, &n.Message, &n.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}
