package convo

import (
	"context"
	"fmt"
	"strings"

	"packbot/internal/repo"
)

const userTypePrompt = `Before we continue, which of these describes you best?

1. Homebaker
2. Store owner / bulk buyer
3. Sweet shop owner

Reply with a number.`

func (e *Engine) handleMenu(ctx context.Context, sess *repo.Session, cls Classification) []reply {
	if cls.Kind == KindSelection {
		switch cls.Selection {
		case 1:
			return e.startShopping(ctx, sess)
		case 2:
			return e.startBooking(sess)
		case 3:
			sess.Stage = StageCustomSolutions
			return []reply{{Body: "Tell us what you need! Describe your packaging requirement, or send a reference photo. Our team and assistant will take it from there."}}
		default:
			return []reply{{Body: "Please pick 1, 2 or 3.\n\n" + e.menuText()}}
		}
	}

	// Free text from the menu goes straight to the assistant, but we need
	// a classification first so pricing rules apply.
	if sess.UserType == nil {
		sess.Context[ctxPendingQuestion] = cls.Text
		sess.Stage = StageSelectUserType
		return []reply{{Body: userTypePrompt}}
	}
	sess.Stage = StageCustomSolutions
	return e.answerQuestion(ctx, sess, cls.Text)
}

func (e *Engine) handleSelectUserType(ctx context.Context, sess *repo.Session, cls Classification) []reply {
	ut, ok := parseUserType(cls)
	if !ok {
		return []reply{{Body: "Please reply with 1, 2 or 3.\n\n" + userTypePrompt}}
	}
	sess.UserType = &ut

	if q := ctxString(sess.Context, ctxPendingQuestion); q != "" {
		delete(sess.Context, ctxPendingQuestion)
		sess.Stage = StageCustomSolutions
		return e.answerQuestion(ctx, sess, q)
	}

	resume := ctxString(sess.Context, ctxResumeStage)
	if resume != "" {
		delete(sess.Context, ctxResumeStage)
		sess.Stage = resume
		switch resume {
		case StageShopTopCategory:
			return e.promptTopCategories(ctx, sess)
		case StageCustomSolutions:
			return []reply{{Body: "Thanks! Now tell us what you need."}}
		}
	}
	sess.Stage = StageMenu
	return []reply{{Body: "Thanks! " + e.menuText()}}
}

func parseUserType(cls Classification) (repo.UserType, bool) {
	if cls.Kind == KindSelection {
		switch cls.Selection {
		case 1:
			return repo.UserTypeHomebaker, true
		case 2:
			return repo.UserTypeStoreOwner, true
		case 3:
			return repo.UserTypeSweetShop, true
		}
		return "", false
	}
	switch strings.ToLower(strings.TrimSpace(cls.Text)) {
	case "homebaker", "home baker", "homebakers":
		return repo.UserTypeHomebaker, true
	case "store owner", "bulk buyer", "store owner / bulk buyer":
		return repo.UserTypeStoreOwner, true
	case "sweet shop", "sweet shop owner":
		return repo.UserTypeSweetShop, true
	}
	return "", false
}

// numberedList renders options as a 1-based pick list.
func numberedList(header string, options []string, footer string) string {
	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n\n")
	for i, opt := range options {
		fmt.Fprintf(&b, "%d. %s\n", i+1, opt)
	}
	if footer != "" {
		b.WriteString("\n")
		b.WriteString(footer)
	}
	return strings.TrimRight(b.String(), "\n")
}
