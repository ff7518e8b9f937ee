package models

import (
	"errors"
	"net/url"
	"strings"
	"unicode/utf8"
)

const (
	maxTextLength    = 4096
	maxCaptionLength = 1024
	maxButtonText    = 64
)

// MediaType: тип единственного вложения поста.
type MediaType string

const (
	MediaNone     MediaType = ""
	MediaPhoto    MediaType = "photo"
	MediaVideo    MediaType = "video"
	MediaDocument MediaType = "document"
)

// allowedButtonSchemes: схемы ссылок, разрешённые в кнопке.
var allowedButtonSchemes = map[string]bool{"https": true, "http": true, "tg": true}

// Content: рекламный пост: текст, необязательное вложение и необязательная кнопка-ссылка.
type Content struct {
	Text       string    `json:"text"`
	MediaURL   string    `json:"media_url,omitempty"`
	MediaType  MediaType `json:"media_type,omitempty"`
	ButtonText string    `json:"button_text,omitempty"`
	ButtonURL  string    `json:"button_url,omitempty"`
}

// HasMedia сообщает, есть ли у поста вложение.
func (c Content) HasMedia() bool { return c.MediaURL != "" }

// HasButton сообщает, есть ли у поста кнопка.
func (c Content) HasButton() bool { return c.ButtonURL != "" }

// Validate проверяет пост перед созданием заказа.
func (c Content) Validate() error {
	text := strings.TrimSpace(c.Text)
	if text == "" && !c.HasMedia() {
		return errors.New("текст поста пуст")
	}
	limit := maxTextLength
	if c.HasMedia() {
		limit = maxCaptionLength
	}
	if utf8.RuneCountInString(c.Text) > limit {
		return errors.New("текст поста слишком длинный")
	}
	if c.HasMedia() {
		switch c.MediaType {
		case MediaPhoto, MediaVideo, MediaDocument:
		default:
			return errors.New("неизвестный тип вложения")
		}
		if err := checkURL(c.MediaURL, map[string]bool{"https": true, "http": true}); err != nil {
			return errors.New("некорректная ссылка на вложение")
		}
	}
	if c.ButtonText != "" && !c.HasButton() {
		return errors.New("у кнопки нет ссылки")
	}
	if c.HasButton() {
		if strings.TrimSpace(c.ButtonText) == "" || utf8.RuneCountInString(c.ButtonText) > maxButtonText {
			return errors.New("некорректный текст кнопки")
		}
		if err := checkURL(c.ButtonURL, allowedButtonSchemes); err != nil {
			return err
		}
	}
	return nil
}

// checkURL разбирает ссылку и сверяет схему со списком разрешённых.
func checkURL(raw string, schemes map[string]bool) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return errors.New("ссылка не разбирается")
	}
	if !schemes[strings.ToLower(u.Scheme)] {
		return errors.New("схема ссылки не разрешена")
	}
	if u.Host == "" {
		return errors.New("в ссылке нет адреса")
	}
	return nil
}
