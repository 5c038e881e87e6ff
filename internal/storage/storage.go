package storage

import (
	"bytes"
	"fmt"

	storage "github.com/supabase-community/storage-go"
)

// Client wraps the Supabase storage bucket holding admin-finalized
// deliverables. Working videos live on local disk; only videos an admin
// publishes for client download go through here.
type Client struct {
	client  *storage.Client
	bucket  string
	baseURL string
}

func NewClient(supabaseURL, serviceRoleKey, bucket string) (*Client, error) {
	baseURL := supabaseURL
	if len(baseURL) > 0 && baseURL[len(baseURL)-1] == '/' {
		baseURL = baseURL[:len(baseURL)-1]
	}
	client := storage.NewClient(baseURL+"/storage/v1", serviceRoleKey, nil)

	return &Client{
		client:  client,
		bucket:  bucket,
		baseURL: baseURL,
	}, nil
}

// UploadFinalVideo stores a finalized video under orders/{order_id}/ and
// returns the storage path and public URL.
func (c *Client) UploadFinalVideo(orderID int64, filename string, data []byte) (string, string, error) {
	storagePath := fmt.Sprintf("orders/%d/%s", orderID, filename)

	contentType := "video/mp4"
	upsert := true
	_, err := c.client.UploadFile(c.bucket, storagePath, bytes.NewReader(data), storage.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to upload file: %w", err)
	}

	return storagePath, c.PublicURL(storagePath), nil
}

func (c *Client) PublicURL(storagePath string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s",
		c.baseURL, c.bucket, storagePath)
}

func (c *Client) DeleteFile(storagePath string) error {
	_, err := c.client.RemoveFile(c.bucket, []string{storagePath})
	return err
}

func (c *Client) DownloadFile(storagePath string) ([]byte, error) {
	data, err := c.client.DownloadFile(c.bucket, storagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}

	return data, nil
}
