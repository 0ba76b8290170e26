package worker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	tele "gopkg.in/telebot.v4"
)

// Telegram implements Messenger on top of a bot that does not poll.
type Telegram struct {
	bot        *tele.Bot
	httpClient *http.Client
}

func NewTelegram(bot *tele.Bot) *Telegram {
	return &Telegram{
		bot: bot,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Download streams a file stored by Telegram into w.
func (t *Telegram) Download(ctx context.Context, fileID string, w io.Writer) error {
	file, err := t.bot.FileByID(fileID)
	if err != nil {
		return fmt.Errorf("failed to get file info: %w", err)
	}

	fileURL := t.bot.URL + "/file/bot" + t.bot.Token + "/" + file.FilePath

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to download file: status=%d", resp.StatusCode)
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("failed to read file data: %w", err)
	}
	return nil
}

func (t *Telegram) Reply(_ context.Context, chatID, replyTo int64, text string) error {
	_, err := t.bot.Send(&tele.Chat{ID: chatID}, text, replyOptions(replyTo))
	return err
}

func (t *Telegram) SendDocument(_ context.Context, chatID, replyTo int64, filename string, data []byte) error {
	doc := &tele.Document{
		File:     tele.FromReader(bytes.NewReader(data)),
		FileName: filename,
		MIME:     "application/pdf",
	}
	_, err := t.bot.Send(&tele.Chat{ID: chatID}, doc, replyOptions(replyTo))
	return err
}

func replyOptions(replyTo int64) *tele.SendOptions {
	if replyTo == 0 {
		return &tele.SendOptions{}
	}
	return &tele.SendOptions{ReplyTo: &tele.Message{ID: int(replyTo)}}
}
