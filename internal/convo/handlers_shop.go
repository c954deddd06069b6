package convo

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"packbot/internal/repo"
)

var pincodeRe = regexp.MustCompile(`^\d{6}$`)

func (e *Engine) startShopping(ctx context.Context, sess *repo.Session) []reply {
	if sess.UserType == nil {
		sess.Context[ctxResumeStage] = StageShopTopCategory
		sess.Stage = StageSelectUserType
		return []reply{{Body: userTypePrompt}}
	}
	return e.promptTopCategories(ctx, sess)
}

func (e *Engine) promptTopCategories(ctx context.Context, sess *repo.Session) []reply {
	cats, err := e.catalog.TopCategories(ctx)
	if err != nil {
		e.logger.Error("failed listing top categories", "error", err)
		e.countError("catalog")
		return []reply{{Body: apologyReply}}
	}
	if len(cats) == 0 {
		resetSession(sess)
		return []reply{{Body: "Our catalog is being updated right now. Please check back soon, or type your question."}}
	}

	ids := make([]string, len(cats))
	names := make([]string, len(cats))
	for i, c := range cats {
		ids[i] = c.ID
		names[i] = c.Name
	}
	sess.Context[ctxTopOptions] = ids
	sess.Stage = StageShopTopCategory
	return []reply{{Body: numberedList("What are you looking for?", names, "Reply with a number. Type *menu* anytime to start over.")}}
}

func (e *Engine) handleShopTopCategory(ctx context.Context, sess *repo.Session, cls Classification) []reply {
	id, ok := pickOption(sess.Context, ctxTopOptions, cls)
	if !ok {
		return []reply{{Body: "Please reply with one of the listed numbers."}}
	}

	subs, err := e.catalog.SubCategories(ctx, id)
	if err != nil {
		e.logger.Error("failed listing sub categories", "category", id, "error", err)
		e.countError("catalog")
		return []reply{{Body: apologyReply}}
	}
	if len(subs) == 0 {
		return e.promptProducts(ctx, sess, id)
	}

	ids := make([]string, len(subs))
	names := make([]string, len(subs))
	for i, c := range subs {
		ids[i] = c.ID
		names[i] = c.Name
	}
	sess.Context[ctxMidOptions] = ids
	sess.Stage = StageShopMidCategory
	return []reply{{Body: numberedList("Pick a type:", names, "Reply with a number.")}}
}

func (e *Engine) handleShopMidCategory(ctx context.Context, sess *repo.Session, cls Classification) []reply {
	id, ok := pickOption(sess.Context, ctxMidOptions, cls)
	if !ok {
		return []reply{{Body: "Please reply with one of the listed numbers."}}
	}
	return e.promptProducts(ctx, sess, id)
}

func (e *Engine) promptProducts(ctx context.Context, sess *repo.Session, categoryID string) []reply {
	products, err := e.catalog.Products(ctx, categoryID)
	if err != nil {
		e.logger.Error("failed listing products", "category", categoryID, "error", err)
		e.countError("catalog")
		return []reply{{Body: apologyReply}}
	}
	if len(products) == 0 {
		return []reply{{Body: "No products in that category yet. Please pick another option, or type *menu*."}}
	}

	ids := make([]string, len(products))
	lines := make([]string, len(products))
	for i, p := range products {
		ids[i] = p.ID
		lines[i] = fmt.Sprintf("%s @ ₹%d/%s", p.Name, p.UnitPrice, p.Unit)
	}
	sess.Context[ctxProductOptions] = ids
	sess.Stage = StageShopProduct
	return []reply{{Body: numberedList("Available products:", lines, "Reply with a number.")}}
}

func (e *Engine) handleShopProduct(ctx context.Context, sess *repo.Session, cls Classification) []reply {
	id, ok := pickOption(sess.Context, ctxProductOptions, cls)
	if !ok {
		return []reply{{Body: "Please reply with one of the listed numbers."}}
	}
	p, err := e.catalog.Product(ctx, id)
	if err != nil {
		e.logger.Error("failed loading product", "product", id, "error", err)
		e.countError("catalog")
		return []reply{{Body: apologyReply}}
	}

	sess.Context[ctxProductID] = p.ID
	sess.Stage = StageShopQuantity

	min := effectiveMOQ(p, sess.UserType)
	r := reply{Body: fmt.Sprintf("%s: ₹%d per %s. How many pieces do you need? (minimum %d)", p.Name, p.UnitPrice, p.Unit, min)}
	if p.ImageURL != nil {
		r.MediaURLs = []string{*p.ImageURL}
	}
	return []reply{r}
}

func (e *Engine) handleShopQuantity(ctx context.Context, sess *repo.Session, cls Classification) []reply {
	p, errReply := e.loadSelectedProduct(ctx, sess)
	if errReply != nil {
		return errReply
	}
	min := effectiveMOQ(p, sess.UserType)

	if cls.Kind != KindSelection {
		return []reply{{Body: fmt.Sprintf("Please send the quantity as a number (minimum %d).", min)}}
	}
	if cls.Selection < min {
		return []reply{{Body: fmt.Sprintf("Our minimum order for this product is %d pieces. Please send a quantity of at least %d.", min, min)}}
	}

	sess.Context[ctxQuantity] = cls.Selection
	sess.Stage = StageAskName

	q := ComputeQuote(*p, cls.Selection, sess.UserType, 0)
	body := fmt.Sprintf("%d x %s = ₹%d + %d%% GST ₹%d = *₹%d*", q.Quantity, p.Name, q.Subtotal, q.GSTPercent, q.GSTAmount, q.Total)
	if q.BulkRate {
		body += fmt.Sprintf(" (bulk rate, %d%% off)", BulkDiscountPercent)
	}
	return []reply{{Body: body + "\n\nTo place the order, please share your full name."}}
}

func (e *Engine) handleCheckoutDetails(ctx context.Context, sess *repo.Session, cls Classification) []reply {
	text := strings.TrimSpace(cls.Text)

	switch sess.Stage {
	case StageAskName:
		if len(text) < 2 {
			return []reply{{Body: "Please share your full name."}}
		}
		sess.Context[ctxName] = text
		sess.Stage = StageAskAddress
		return []reply{{Body: "Thanks! Now share your delivery address."}}
	case StageAskAddress:
		if len(text) < 5 {
			return []reply{{Body: "That address looks too short. Please share the full delivery address."}}
		}
		sess.Context[ctxAddress] = text
		sess.Stage = StageAskPincode
		return []reply{{Body: "And your 6-digit pincode?"}}
	default: // StageAskPincode
		if !pincodeRe.MatchString(text) {
			return []reply{{Body: "That does not look like a pincode. Please send the 6-digit pincode."}}
		}
		sess.Context[ctxPincode] = text
		return e.promptOrderConfirm(ctx, sess)
	}
}

func (e *Engine) promptOrderConfirm(ctx context.Context, sess *repo.Session) []reply {
	p, errReply := e.loadSelectedProduct(ctx, sess)
	if errReply != nil {
		return errReply
	}
	quantity := ctxInt(sess.Context, ctxQuantity)
	q := ComputeQuote(*p, quantity, sess.UserType, ctxFloat(sess.Context, ctxQuotedRate))

	sess.Stage = StageShopConfirm
	body := fmt.Sprintf(`Please confirm your order:

%s x %d @ ₹%d
Subtotal: ₹%d
GST (%d%%): ₹%d
*Total: ₹%d*

Name: %s
Address: %s
Pincode: %s

Reply *yes* to confirm or *no* to cancel.`,
		p.Name, q.Quantity, q.UnitPrice, q.Subtotal, q.GSTPercent, q.GSTAmount, q.Total,
		ctxString(sess.Context, ctxName), ctxString(sess.Context, ctxAddress), ctxString(sess.Context, ctxPincode))
	return []reply{{Body: body}}
}

func (e *Engine) handleShopConfirm(ctx context.Context, sess *repo.Session, cls Classification) []reply {
	switch {
	case IsNegative(cls.Text):
		resetSession(sess)
		return []reply{{Body: "Order cancelled. " + e.menuText()}}
	case !IsAffirmative(cls.Text):
		return []reply{{Body: "Please reply *yes* to confirm the order or *no* to cancel."}}
	}

	p, errReply := e.loadSelectedProduct(ctx, sess)
	if errReply != nil {
		return errReply
	}
	quantity := ctxInt(sess.Context, ctxQuantity)
	q := ComputeQuote(*p, quantity, sess.UserType, ctxFloat(sess.Context, ctxQuotedRate))

	name := ctxString(sess.Context, ctxName)
	address := ctxString(sess.Context, ctxAddress)
	pincode := ctxString(sess.Context, ctxPincode)
	expires := time.Now().Add(e.cfg.OrderTTL)

	order := repo.Order{
		OrderRef:        newRef("ORD"),
		Phone:           sess.Phone,
		CustomerName:    &name,
		CustomerAddress: &address,
		CustomerPincode: &pincode,
		Status:          repo.OrderStatusPending,
		Subtotal:        q.Subtotal,
		GSTAmount:       q.GSTAmount,
		TotalAmount:     q.Total,
		ExpiresAt:       &expires,
		Items: []repo.OrderItem{{
			ProductID: p.ID,
			Name:      p.Name,
			UnitPrice: q.UnitPrice,
			Quantity:  q.Quantity,
			LineTotal: q.Subtotal,
		}},
	}
	created, err := e.store.InsertOrder(ctx, order)
	if err != nil {
		e.logger.Error("failed inserting order", "phone", sess.Phone, "error", err)
		e.countError("orders")
		return []reply{{Body: apologyReply}}
	}

	sess.Context = map[string]any{ctxOrderRef: created.OrderRef}
	sess.Stage = StagePaymentPending

	e.notifyAdmins(ctx, fmt.Sprintf("New order %s from %s: %d x %s, total ₹%d.", created.OrderRef, sess.Phone, q.Quantity, p.Name, q.Total))
	e.sendPaymentPrompt(ctx, sess.Phone, created.OrderRef, q.Total)

	return []reply{{Body: fmt.Sprintf("Order *%s* placed! Total due: ₹%d.\n\nPlease complete payment using the link we send next. The order is held for %s.", created.OrderRef, q.Total, formatTTL(e.cfg.OrderTTL))}}
}

func (e *Engine) loadSelectedProduct(ctx context.Context, sess *repo.Session) (*repo.Product, []reply) {
	id := ctxString(sess.Context, ctxProductID)
	if id == "" {
		resetSession(sess)
		return nil, []reply{{Body: "Let's start over. " + e.menuText()}}
	}
	p, err := e.catalog.Product(ctx, id)
	if err != nil {
		e.logger.Error("failed loading product", "product", id, "error", err)
		e.countError("catalog")
		return nil, []reply{{Body: apologyReply}}
	}
	return p, nil
}

// effectiveMOQ is the larger of the product minimum and the customer-class
// minimum.
func effectiveMOQ(p *repo.Product, userType *repo.UserType) int {
	min := MOQ(userType)
	if p.MinQuantity > min {
		return p.MinQuantity
	}
	return min
}

// pickOption resolves a numeric selection against a stored option-ID list.
func pickOption(sessionCtx map[string]any, key string, cls Classification) (string, bool) {
	if cls.Kind != KindSelection {
		return "", false
	}
	ids := ctxStringSlice(sessionCtx, key)
	if cls.Selection < 1 || cls.Selection > len(ids) {
		return "", false
	}
	return ids[cls.Selection-1], true
}

func newRef(prefix string) string {
	return prefix + "-" + strings.ToUpper(uuid.NewString()[:8])
}

func formatTTL(d time.Duration) string {
	if d >= time.Hour {
		return fmt.Sprintf("%d hours", int(d.Hours()))
	}
	return fmt.Sprintf("%d minutes", int(d.Minutes()))
}

func (e *Engine) notifyAdmins(ctx context.Context, body string) {
	for _, phone := range e.cfg.AdminPhones {
		if _, err := e.messenger.SendText(ctx, phone, body); err != nil {
			e.logger.Warn("failed notifying admin", "phone", phone, "error", err)
		}
	}
}
