package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"dinq_match/model"

	"gorm.io/gorm"
)

// defaultTemplate 内置模板
type defaultTemplate struct {
	Title   string
	Content string
}

// defaultTemplates 每种通知类型的内置模板，数据库覆盖只能针对这里已有的类型
var defaultTemplates = map[string]defaultTemplate{
	model.KindNewMessage: {
		Title:   "New Message",
		Content: "{{sender_name}} sent you a message.",
	},
	model.KindNewMatch: {
		Title:   "It's a match!",
		Content: "You and {{display_name}} liked each other.",
	},
	model.KindForumReply: {
		Title:   "New reply in {{thread_title}}",
		Content: "{{author_name}} replied to your post.",
	},
	model.KindSubscriptionCreated: {
		Title:   "Subscription Active",
		Content: "Your {{plan}} subscription is now active.",
	},
	model.KindPaymentSucceeded: {
		Title:   "Payment Received",
		Content: "We received your payment of {{amount}}.",
	},
	model.KindSubscriptionCanceled: {
		Title:   "Subscription Canceled",
		Content: "Your {{plan}} subscription has been canceled.",
	},
}

var placeholderPattern = regexp.MustCompile(`\{\{\s*[a-zA-Z0-9_]+\s*\}\}`)

type TemplateService struct {
	db *gorm.DB
}

func NewTemplateService(db *gorm.DB) *TemplateService {
	return &TemplateService{db: db}
}

// Render 渲染通知标题和内容，未知类型返回 ErrUnknownTemplate
func (s *TemplateService) Render(ctx context.Context, kind string, payload map[string]interface{}) (string, string, error) {
	tpl, ok := defaultTemplates[kind]
	if !ok {
		return "", "", fmt.Errorf("%w: %s", ErrUnknownTemplate, kind)
	}

	// 有启用的覆盖模板时优先使用
	if s.db != nil {
		var override model.NotificationTemplate
		err := s.db.WithContext(ctx).Where("type = ? AND is_active = ?", kind, true).First(&override).Error
		switch {
		case err == nil:
			tpl.Title = override.Title
			if override.ContentTemplate != nil {
				tpl.Content = *override.ContentTemplate
			}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return "", "", fmt.Errorf("failed to load template override: %w", err)
		}
	}

	vars := make(map[string]string, len(payload))
	for key, value := range payload {
		vars[key] = fmt.Sprint(value)
	}

	return RenderTemplate(tpl.Title, vars), RenderTemplate(tpl.Content, vars), nil
}

// RenderTemplate 渲染模板，替换变量；缺失的变量替换为空
func RenderTemplate(template string, vars map[string]string) string {
	result := template
	for key, value := range vars {
		placeholder := "{{" + key + "}}"
		result = strings.ReplaceAll(result, placeholder, value)
	}
	return strings.TrimSpace(placeholderPattern.ReplaceAllString(result, ""))
}

// TemplateView 管理后台展示的模板（内置或覆盖）
type TemplateView struct {
	Type            string  `json:"type"`
	Title           string  `json:"title"`
	ContentTemplate string  `json:"content_template"`
	Overridden      bool    `json:"overridden"`
	IsActive        bool    `json:"is_active"`
	Description     *string `json:"description,omitempty"`
}

// ListTemplates 获取所有模板（内置模板合并覆盖）
func (s *TemplateService) ListTemplates() ([]TemplateView, error) {
	var overrides []model.NotificationTemplate
	if err := s.db.Order("type ASC").Find(&overrides).Error; err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}

	byType := make(map[string]model.NotificationTemplate, len(overrides))
	for _, o := range overrides {
		byType[o.Type] = o
	}

	kinds := make([]string, 0, len(defaultTemplates))
	for kind := range defaultTemplates {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	views := make([]TemplateView, 0, len(kinds))
	for _, kind := range kinds {
		def := defaultTemplates[kind]
		view := TemplateView{Type: kind, Title: def.Title, ContentTemplate: def.Content, IsActive: true}
		if o, ok := byType[kind]; ok {
			view.Overridden = true
			view.IsActive = o.IsActive
			view.Title = o.Title
			view.Description = o.Description
			if o.ContentTemplate != nil {
				view.ContentTemplate = *o.ContentTemplate
			}
		}
		views = append(views, view)
	}
	return views, nil
}

// UpsertTemplate 创建或更新覆盖模板
func (s *TemplateService) UpsertTemplate(kind, title string, content *string, isActive bool, description *string) (*model.NotificationTemplate, error) {
	if _, ok := defaultTemplates[kind]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTemplate, kind)
	}
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}

	var tpl model.NotificationTemplate
	err := s.db.Where("type = ?", kind).First(&tpl).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to get template: %w", err)
	}

	tpl.Type = kind
	tpl.Title = title
	tpl.ContentTemplate = content
	tpl.IsActive = isActive
	tpl.Description = description

	// Save 会连同零值一起写入（is_active=false 也能保存）
	if err := s.db.Save(&tpl).Error; err != nil {
		return nil, fmt.Errorf("failed to save template: %w", err)
	}
	return &tpl, nil
}

// DeleteTemplate 删除覆盖模板，恢复内置模板
func (s *TemplateService) DeleteTemplate(kind string) error {
	result := s.db.Where("type = ?", kind).Delete(&model.NotificationTemplate{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete template: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrTemplateNotFound
	}
	return nil
}
