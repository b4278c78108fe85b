package flow

// User-facing message templates. These strings are the bot's de facto
// protocol; pattern words (menu numbers, done/skip, yes/no) referenced in
// prompts must stay in sync with the matchers in the handlers.
const (
	msgWelcome = "Hello! Welcome to WhatsUp Commerce 👋\n\n" +
		"1. Register as a seller\n" +
		"2. Login to your seller account\n" +
		"3. Browse products\n" +
		"4. Support\n\n" +
		"Reply with a number or keyword to continue."

	msgWelcomeBack = "Welcome back, %s! 👋"

	msgDashboardMenu = "Seller dashboard:\n\n" +
		"1. Add product\n" +
		"2. View products\n" +
		"3. Update profile\n" +
		"4. Logout\n\n" +
		"Reply with a number to continue."

	msgSupport = "Our support team will contact you shortly. " +
		"Meanwhile, type hi to return to the main menu."

	msgFallbackLoggedIn  = "I didn't understand that. Type hi to see your dashboard menu."
	msgFallbackLoggedOut = "I didn't understand that. Type hi to get started."

	msgGenericError = "Sorry, something went wrong. Please try again."

	// Registration prompts.
	msgRegStart        = "Great, let's register your business! First, what's your email address?"
	msgRegPassword     = "Thanks! Now choose a password (at least 6 characters)."
	msgRegBusinessName = "What's your business name?"
	msgRegOwnerName    = "And the owner's name?"
	msgRegAddress      = "What's your business address?"
	msgRegCategory     = "What category does your business fall under? (e.g. Food, Fashion, Electronics)"
	msgRegDescription  = "Finally, describe your business in a sentence or two. Type skip to leave it empty."
	msgRegComplete     = "🎉 Your seller account is ready, %s! Your profile is pending approval.\n\n" + msgDashboardMenu

	msgInvalidEmail    = "That doesn't look like a valid email address. Please try again."
	msgInvalidPassword = "Password must be at least 6 characters. Please try again."
	msgEmptyInput      = "This field can't be empty. Please try again."

	// Login prompts.
	msgLoginStart     = "Welcome back! What's your email address?"
	msgLoginPassword  = "And your password?"
	msgLoginComplete  = "✅ Logged in as %s.\n\n" + msgDashboardMenu
	msgLoginNoProfile = "Your account exists but no seller profile was found. Please register first."

	// Dashboard.
	msgProfileStub   = "Profile updates are coming soon. Use the web dashboard for now."
	msgLogoutDone    = "You've been logged out. Type hi anytime to start again."
	msgNoProducts    = "You haven't added any products yet. Reply 1 to add your first product."
	msgProductsIntro = "Your products:\n\n%s"

	// Product entry prompts.
	msgProductStart       = "Let's add a product! What's the product name?"
	msgProductPrice       = "What's the price? (whole number, e.g. 500)"
	msgProductDescription = "Add a short description, or type skip."
	msgProductStock       = "How many units do you have in stock?"
	msgProductImages      = "Send product photos one by one. Type done when finished, or skip to add none."
	msgProductImageCount  = "📷 Got it! %d photo(s) saved. Send another, or type done."
	msgProductImageReject = "Please send a photo, or type done / skip."
	msgInvalidPrice       = "Price must be a positive whole number. Please try again."
	msgInvalidStock       = "Stock must be a non-negative whole number. Please try again."
	msgSellerInactive     = "Your seller account is currently %s, so new products can't be added. Please contact support."
	msgProductCreated     = "✅ %s has been added to your catalog!\n\nReply 1 to add another product, or 2 to view your products."

	// Buyer browse.
	msgBrowseStart     = "🛍️ What are you looking for today? Describe it in your own words."
	msgBrowseEmpty     = "Sorry, there are no products available right now. Please check back later!"
	msgBrowseHint      = "Reply with a product number or name to see details, or describe something else."
	msgBrowseDetails   = "%s\nPrice: %d\nStock: %d\n%s\nWould you like to buy this? (yes/no)"
	msgBrowseConfirm   = "Great! What name should we give the seller?"
	msgBrowseDecline   = "No problem! Type hi anytime to browse again. 👋"
	msgBrowseReconfirm = "Please reply yes to buy, or no to go back."
	msgBrowseDone      = "✅ Thanks, %s! Your interest in %s has been sent to the seller. They'll contact you on WhatsApp soon."

	msgAIUnavailable = "Sorry, I couldn't process that right now. Please try again in a moment."
)

// aiSystemPrompt is the instruction contract for the shopping assistant.
const aiSystemPrompt = "You are a friendly WhatsApp shopping assistant for a small-business marketplace. " +
	"You will receive the full product catalog as a numbered list and a buyer's query. " +
	"Surface only items matching the query, at most 5. " +
	"If there is a direct match, state it plainly. " +
	"If nothing matches, suggest the closest alternatives from the catalog. " +
	"Never list unrelated items and never invent products. " +
	"Close by asking whether the buyer wants to buy or know more."
