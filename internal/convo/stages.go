package convo

// Conversation stages. Stored as plain strings on the session row.
const (
	StageMenu           = "menu"
	StageSelectUserType = "select_user_type"

	StageCustomSolutions = "custom_solutions"
	StageAskLeadName     = "custom_solutions_ask_name"
	StageAskLeadCity     = "custom_solutions_ask_city"
	StageAskLeadPincode  = "custom_solutions_ask_pincode"

	StageShopTopCategory = "shop_top_category"
	StageShopMidCategory = "shop_mid_category"
	StageShopProduct     = "shop_product"
	StageShopQuantity    = "shop_quantity"
	StageAskName         = "ask_name"
	StageAskAddress      = "ask_address"
	StageAskPincode      = "ask_pincode"
	StageShopConfirm     = "shop_confirm"

	StageChooseDate       = "choose_date"
	StageChoosePlayers    = "choose_players"
	StageChooseSlot       = "choose_slot"
	StageChooseCourt      = "choose_court"
	StagePaymentPending   = "payment_pending"
	StageBookingConfirmed = "booking_confirmed"

	StageConfirmExit = "confirm_exit_flow"
	StageManual      = "manual"
)

// shoppingStages are the multi-step flows where conversational free text
// offers the exit-flow interrupt instead of a re-prompt.
var shoppingStages = map[string]struct{}{
	StageShopTopCategory: {},
	StageShopMidCategory: {},
	StageShopProduct:     {},
	StageShopQuantity:    {},
	StageShopConfirm:     {},
	StageChooseDate:      {},
	StageChoosePlayers:   {},
	StageChooseSlot:      {},
	StageChooseCourt:     {},
}
