package main

import (
	"flag"
	"fmt"
	"log"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/imroc/req"
	"github.com/schollz/progressbar/v3"
	"github.com/tidwall/gjson"
)

// uploadctl drives one video upload through the service API and renders
// pipeline progress in the terminal.

var (
	server       string
	shop         string
	filePath     string
	title        string
	description  string
	duration     int
	sourceAuthor string
	sourceType   string
	productId    string
	mimeType     string
)

func init() {
	flag.StringVar(&server, "server", "http://localhost:7080", "Service base URL")
	flag.StringVar(&shop, "shop", "", "Shop domain (required)")
	flag.StringVar(&filePath, "file", "", "Video file to upload (required)")
	flag.StringVar(&title, "title", "", "Video title (defaults to file name)")
	flag.StringVar(&description, "description", "", "Video description")
	flag.IntVar(&duration, "duration", 0, "Video duration in seconds")
	flag.StringVar(&sourceAuthor, "author", "", "Original creator handle")
	flag.StringVar(&sourceType, "source", "upload", "Source type")
	flag.StringVar(&productId, "product", "", "Linked product ID")
	flag.StringVar(&mimeType, "mime", "", "MIME type (detected from extension when empty)")
}

func main() {
	flag.Parse()

	if shop == "" || filePath == "" {
		flag.Usage()
		os.Exit(2)
	}

	if title == "" {
		title = filepath.Base(filePath)
	}
	if mimeType == "" {
		mimeType = mime.TypeByExtension(filepath.Ext(filePath))
		if mimeType == "" {
			mimeType = "video/mp4"
		}
	}

	sessionID, err := startUpload()
	if err != nil {
		log.Fatalf("Failed to start upload: %v", err)
	}
	fmt.Printf("Session %s started\n", sessionID)

	if err := watchSession(sessionID); err != nil {
		log.Fatalf("Upload failed: %v", err)
	}
}

// startUpload posts the multipart start request and returns the session ID.
func startUpload() (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	resp, err := req.Post(server+"/api/v1/videos/uploads",
		req.Header{"X-Shop-Domain": shop},
		req.FileUpload{
			FieldName: "file",
			FileName:  filepath.Base(filePath),
			File:      file,
		},
		req.Param{
			"title":        title,
			"description":  description,
			"duration":     strconv.Itoa(duration),
			"sourceAuthor": sourceAuthor,
			"sourceType":   sourceType,
			"productId":    productId,
			"mimeType":     mimeType,
		})
	if err != nil {
		return "", err
	}

	body := resp.Bytes()
	status := resp.Response().StatusCode
	if status < 200 || status >= 300 {
		return "", fmt.Errorf("HTTP %d: %s", status, gjson.GetBytes(body, "message").String())
	}

	sessionID := gjson.GetBytes(body, "data.sessionId").String()
	if sessionID == "" {
		return "", fmt.Errorf("no session ID in response: %s", string(body))
	}
	return sessionID, nil
}

// watchSession polls session status until it finishes, rendering progress.
func watchSession(sessionID string) error {
	bar := progressbar.NewOptions(100,
		progressbar.OptionSetDescription("staging"),
		progressbar.OptionSetWidth(50),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	)

	lastStage := ""
	for {
		time.Sleep(time.Second)

		resp, err := req.Get(server+"/api/v1/videos/uploads/"+sessionID,
			req.Header{"X-Shop-Domain": shop})
		if err != nil {
			return err
		}

		body := resp.Bytes()
		stage := gjson.GetBytes(body, "data.stage").String()
		progress := int(gjson.GetBytes(body, "data.progress").Int())

		if stage != lastStage {
			lastStage = stage
			bar.Describe(stage)
		}
		bar.Set(progress)

		switch stage {
		case "done":
			bar.Finish()
			fmt.Printf("\nVideo record %d created: %s\n",
				gjson.GetBytes(body, "data.videoId").Int(),
				gjson.GetBytes(body, "data.videoUrl").String())
			return nil
		case "failed":
			fmt.Println()
			return fmt.Errorf("%s: %s",
				gjson.GetBytes(body, "data.errorKind").String(),
				gjson.GetBytes(body, "data.errorMessage").String())
		case "polling":
			attempt := gjson.GetBytes(body, "data.pollAttempt").Int()
			bar.Describe(fmt.Sprintf("polling (attempt %d)", attempt))
		}
	}
}
