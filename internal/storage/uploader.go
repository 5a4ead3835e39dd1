// internal/storage/uploader.go
package storage

import (
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Uploader stores an image and returns its public URL.
type Uploader interface {
	UploadBase64(base64Image, publicID string) (string, error)
}

// CloudinaryUploader performs signed uploads against the Cloudinary HTTP API.
type CloudinaryUploader struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
	client    *http.Client
}

func NewCloudinaryUploader(cloudName, apiKey, apiSecret, folder string) *CloudinaryUploader {
	return &CloudinaryUploader{
		CloudName: cloudName,
		APIKey:    apiKey,
		APISecret: apiSecret,
		Folder:    folder,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (u *CloudinaryUploader) UploadBase64(base64Image, publicID string) (string, error) {
	if base64Image == "" {
		return "", fmt.Errorf("empty image payload")
	}

	// Strip a data-URI prefix if present
	payload := base64Image
	if i := strings.Index(base64Image, ","); i != -1 {
		payload = base64Image[i+1:]
	}

	finalPublicID := publicID
	if u.Folder != "" {
		finalPublicID = u.Folder + "/" + publicID
	}

	form := url.Values{}
	form.Add("file", "data:image/jpeg;base64,"+payload)
	form.Add("api_key", u.APIKey)
	form.Add("public_id", finalPublicID)

	timestamp := fmt.Sprintf("%d", time.Now().Unix())
	form.Add("timestamp", timestamp)

	// Cloudinary signed uploads require a SHA1 over the sorted params + secret
	signatureString := fmt.Sprintf("public_id=%s&timestamp=%s%s", finalPublicID, timestamp, u.APISecret)
	form.Add("signature", fmt.Sprintf("%x", sha1.Sum([]byte(signatureString))))

	endpoint := "https://api.cloudinary.com/v1_1/" + u.CloudName + "/image/upload"
	req, err := http.NewRequest(http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := u.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload request failed: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read upload response: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("upload failed with status %d: %s", res.StatusCode, string(body))
	}

	var cloudRes struct {
		SecureURL string `json:"secure_url"`
		URL       string `json:"url"`
		Error     struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &cloudRes); err != nil {
		return "", fmt.Errorf("failed to parse upload response: %w", err)
	}
	if cloudRes.Error.Message != "" {
		return "", fmt.Errorf("cloudinary error: %s", cloudRes.Error.Message)
	}

	imageURL := cloudRes.SecureURL
	if imageURL == "" {
		imageURL = cloudRes.URL
	}
	if imageURL == "" {
		return "", fmt.Errorf("no URL returned from cloudinary")
	}
	return imageURL, nil
}
