package onboarding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ogurasousui/talent-board/internal/core/person"
)

// SideEffectsTaskType はオンボーディング後の外部連携タスクの種別名です。
const SideEffectsTaskType = "onboarding.side_effects"

// SideEffectsPayload はタスクの内容です。
type SideEffectsPayload struct {
	PersonID string `json:"person_id"`
}

// Chat はチャットワークスペースです。
type Chat interface {
	Invite(ctx context.Context, email string) error
	Post(ctx context.Context, channel, text string) error
	Deactivate(ctx context.Context, email string) error
}

// Subscriber はメール配信リストへの登録です。
type Subscriber interface {
	Subscribe(ctx context.Context, email, firstName string) error
}

// Mailer はテンプレートメールの送信です。
type Mailer interface {
	Send(ctx context.Context, templateID, to string, data map[string]any) error
}

// SideEffectPeople は外部連携の結果を記録する先です。
type SideEffectPeople interface {
	FindByID(ctx context.Context, id string) (*person.Person, error)
	MarkSideEffect(ctx context.Context, id string, effect person.SideEffect, done bool) error
}

// SideEffectsConfig は外部連携の宛先設定です。
type SideEffectsConfig struct {
	NotifyChannel     string
	WelcomeTemplateID string
}

// SideEffects はオンボーディング完了後の外部連携を実行します。
// 各連携の失敗はログと人物のフラグに記録するだけで、呼び出し元には返しません。
// 完了済みのフラグが立っている連携は再実行しないため、タスクが重複して配送されても二重に送信されません。
type SideEffects struct {
	people SideEffectPeople
	chat   Chat
	list   Subscriber
	mail   Mailer
	cfg    SideEffectsConfig
	logger *slog.Logger
}

// NewSideEffects は SideEffects を生成します。
func NewSideEffects(people SideEffectPeople, chat Chat, list Subscriber, mail Mailer, cfg SideEffectsConfig, logger *slog.Logger) *SideEffects {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SideEffects{people: people, chat: chat, list: list, mail: mail, cfg: cfg, logger: logger}
}

// Handle はタスクのペイロードを解釈して外部連携を実行します。
// 人物の読み出しに失敗した場合のみエラーを返し、再実行に委ねます。
func (s *SideEffects) Handle(ctx context.Context, payload []byte) error {
	var in SideEffectsPayload
	if err := json.Unmarshal(payload, &in); err != nil {
		return fmt.Errorf("decode %s payload: %w", SideEffectsTaskType, err)
	}

	p, err := s.people.FindByID(ctx, in.PersonID)
	if errors.Is(err, person.ErrPersonNotFound) {
		s.logger.InfoContext(ctx, "side effects skipped for missing person", slog.String("person_id", in.PersonID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("load person: %w", err)
	}

	if !p.SideEffects.ChatInviteSent {
		s.run(ctx, p, person.SideEffectChatInvite, func() error {
			return s.chat.Invite(ctx, p.Email)
		})
	}
	if !p.SideEffects.MailingListSubscribed {
		s.run(ctx, p, person.SideEffectMailingList, func() error {
			return s.list.Subscribe(ctx, p.Email, p.FirstName)
		})
	}
	if !p.SideEffects.InternalNotified {
		s.run(ctx, p, person.SideEffectInternalNotify, func() error {
			return s.chat.Post(ctx, s.cfg.NotifyChannel, fmt.Sprintf("New member onboarded: %s (%s)", p.FullName(), p.Email))
		})
		if s.cfg.WelcomeTemplateID != "" {
			if err := s.mail.Send(ctx, s.cfg.WelcomeTemplateID, p.Email, map[string]any{"first_name": p.FirstName}); err != nil {
				s.logger.WarnContext(ctx, "welcome email failed", slog.String("person_id", p.ID), slog.Any("error", err))
			}
		}
	}
	return nil
}

func (s *SideEffects) run(ctx context.Context, p *person.Person, effect person.SideEffect, call func() error) {
	err := call()
	if err != nil {
		s.logger.WarnContext(ctx, "side effect failed",
			slog.String("person_id", p.ID), slog.String("effect", string(effect)), slog.Any("error", err))
	}
	if markErr := s.people.MarkSideEffect(ctx, p.ID, effect, err == nil); markErr != nil {
		s.logger.ErrorContext(ctx, "record side effect failed",
			slog.String("person_id", p.ID), slog.String("effect", string(effect)), slog.Any("error", markErr))
	}
}

// HandleOffboard は退会した人物のチャットアカウントを無効化します。失敗は再実行に委ねます。
func (s *SideEffects) HandleOffboard(ctx context.Context, payload []byte) error {
	var in person.OffboardPayload
	if err := json.Unmarshal(payload, &in); err != nil {
		return fmt.Errorf("decode %s payload: %w", person.OffboardTaskType, err)
	}
	if in.Email == "" {
		return nil
	}
	if err := s.chat.Deactivate(ctx, in.Email); err != nil {
		return fmt.Errorf("deactivate chat account: %w", err)
	}
	s.logger.InfoContext(ctx, "chat account deactivated", slog.String("person_id", in.PersonID))
	return nil
}
