package constants

const (
	// Keywords.
	// Matched against the entire message content, case-sensitive.
	StartKeyword  = "report"
	CancelKeyword = "cancel"
	HelpKeyword   = "help"

	// Reactions.
	ConfirmEmoji = "✅"
	RejectEmoji  = "❌"
	MinorEmoji   = "🔹"
	MajorEmoji   = "🔷"

	// Report limits.
	MaxNoteLength = 500

	// SkippedSentinel is appended to the report path when the reporter
	// skips the questionnaire.
	SkippedSentinel = "Skipped questionnaire"

	// AutoFlaggedSentinel is the report path of an automatic report.
	AutoFlaggedSentinel = "Automatically flagged"
)

// Reporter-facing messages.
const (
	HelpMessage = "Use the `report` command to begin the reporting process.\n" +
		"Use the `cancel` command to cancel the report process.\n"

	StartMessage = "Thank you for starting the reporting process. " +
		"Say `help` at any time for more information.\n\n" +
		"Please copy paste the link to the message you want to report.\n" +
		"You can obtain this link by right-clicking the message and clicking `Copy Message Link`."

	CancelledMessage = "Report cancelled."

	InvalidLinkMessage = "I'm sorry, I couldn't read that link. Please try again or say `cancel` to cancel."

	GuildNotFoundMessage = "I cannot accept reports of messages from guilds that I'm not in. " +
		"Please have the guild owner add me to the guild and try again."

	ChannelNotFoundMessage = "It seems this channel was deleted or never existed. " +
		"Please try again or say `cancel` to cancel."

	MessageNotFoundMessage = "It seems this message was deleted or never existed. " +
		"Please try again or say `cancel` to cancel."

	InvalidChoiceMessage = "Invalid choice. Please reply with the number of one of the options above."

	DetailsPromptMessage = "Leave any additional comments here, and we will pass them on to our moderators."

	ReportReceivedMessage = "Thank you for your report. " +
		"Our moderators have been notified and will take action if necessary."
)

// Moderator-facing messages.
const (
	ReportHeaderMessage = "🚨 A user has submitted a report!"

	TriagePromptMessage = "Does the content violate our standing policies? Select yes (✅) or no (❌)"

	TriageConfirmedMessage = "Report acknowledged, determining severity"

	SeverityPromptMessage = "Select the severity of the infraction: " +
		"select 🔹 for a minor infraction or 🔷 for a major infraction"

	TriageRejectedMessage = "Report dismissed, closing report."

	ReportClosedMessage = "Report complete, closing report."
)

// Sanction notices sent to the reported author.
const (
	WarnNotice = "We've noticed that your recent message violated our community guidelines. " +
		"Please review our policies to avoid further action. " +
		"Continued violations may result in suspension or removal from the platform."

	SuspendNotice = "Your account has been temporarily suspended due to repeated violations " +
		"of our community policies. You may log back in after 7 days. " +
		"Please review our guidelines to continue participating safely."

	RemoveNotice = "Your account has been permanently removed due to a serious violation of " +
		"our community standards. If you believe this was an error, you may submit " +
		"an appeal within 7 days."
)

// Automod advisories posted in the monitored channel.
const (
	AdvisoryWarning = "⚠️ A recent message in this channel shows warning signs of a sextortion attempt. " +
		"Be careful about sharing private images or sending money to people you only know online."

	AdvisoryAlert = "🚨 A recent message in this channel is likely part of a sextortion attempt. " +
		"Do not comply with threats or demands, and consider blocking the sender. " +
		"Support resources: "
)
