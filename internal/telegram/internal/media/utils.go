package media

import "github.com/go-telegram/bot/models"

// HasMedia reports whether message carries a photo or a document.
func HasMedia(message *models.Message) bool {
	return len(message.Photo) > 0 || message.Document != nil
}

// PhotoFileID returns the file id of the largest size of the photo, if any.
func PhotoFileID(message *models.Message) string {
	if len(message.Photo) == 0 {
		return ""
	}
	return message.Photo[len(message.Photo)-1].FileID
}

func DocumentFileID(message *models.Message) string {
	if message.Document == nil {
		return ""
	}
	return message.Document.FileID
}

// UploadedFileID picks the file id Telegram assigned to a sent photo or
// document.
func UploadedFileID(message *models.Message) string {
	if message == nil {
		return ""
	}
	if id := DocumentFileID(message); id != "" {
		return id
	}
	return PhotoFileID(message)
}
