package entitlement

import (
	"fmt"
	"strconv"
	"time"

	"github.com/filegate/filegate/gateway"
	"github.com/filegate/filegate/types"
	"github.com/filegate/filegate/verification"
)

// Screens are plain strings plus structural button annotations; platform
// escaping is the gateway adapter's problem.

const verifyPrompt = "You need to verify before downloading files.\n\n" +
	"Tap Verify Now, complete the short page, and you'll be brought right back."

func quotaPrompt(limit int64) string {
	return fmt.Sprintf("You've used all %d downloads for this verification window.\n\n"+
		"Verify again to reset your quota and keep downloading.", limit)
}

func notFoundScreen(postNo int64) *Screen {
	return &Screen{
		Text: fmt.Sprintf("File #%d doesn't exist or was removed.", postNo),
	}
}

func subscribeScreen(missing []*types.Channel, postNo int64) *Screen {
	kb := make(gateway.Keyboard, 0, len(missing)+1)
	for _, ch := range missing {
		label := ch.ButtonText
		if label == "" {
			label = "Join @" + ch.Handle
		}
		kb = append(kb, gateway.Row(gateway.Button{Label: label, URL: ch.Link}))
	}
	kb = append(kb, gateway.Row(gateway.Button{
		Label:        "I've joined — try again",
		CallbackData: "retry:" + strconv.FormatInt(postNo, 10),
	}))
	return &Screen{
		Text:     "Join the channels below to unlock downloads, then tap try again.",
		Keyboard: kb,
	}
}

func verifyCTAScreen(prompt, verifyURL, tutorialURL string) *Screen {
	kb := gateway.Keyboard{
		gateway.Row(gateway.Button{Label: "Verify Now", URL: verifyURL}),
	}
	if tutorialURL != "" {
		kb = append(kb, gateway.Row(gateway.Button{Label: "How to Verify", URL: tutorialURL}))
	}
	return &Screen{Text: prompt, Keyboard: kb}
}

func deliveredCaption(f *types.File, password string) string {
	caption := f.Title
	if f.Extra != "" {
		caption += "\n" + f.Extra
	}
	if password != "" {
		caption += "\n\nArchive password: " + password
	}
	return caption
}

func selfDestructWarning(ttl time.Duration) string {
	return fmt.Sprintf("This file self-destructs in %d minutes. Save it now!",
		int(ttl.Minutes()))
}

func reAccessText(f *types.File) string {
	return fmt.Sprintf("%s was deleted to keep the chat clean.\n"+
		"Tap below to receive it again — re-access doesn't count against your quota.", f.Title)
}

func reAccessKeyboard(postNo int64, botUsername string) gateway.Keyboard {
	url := fmt.Sprintf("https://t.me/%s?start=%s", botUsername, verification.EncodeGet(postNo))
	return gateway.Keyboard{
		gateway.Row(gateway.Button{Label: "Get it again", URL: url}),
	}
}

func tryAgainScreen() *Screen {
	return &Screen{Text: "Something went wrong delivering your file. Please try again in a moment."}
}

func verifiedScreen(limit int64, period time.Duration) *Screen {
	return &Screen{
		Text: fmt.Sprintf("Verified successfully! You can download %d files over the next %d hours.",
			limit, int(period.Hours())),
	}
}

func alreadyVerifiedScreen(remaining int64, expiresAt time.Time, now time.Time) *Screen {
	left := expiresAt.Sub(now).Round(time.Minute)
	return &Screen{
		Text: fmt.Sprintf("You're already verified. %d downloads left, valid for another %s.",
			remaining, left),
	}
}

func bypassScreen() *Screen {
	return &Screen{
		Text: "Verification failed: the check wasn't completed properly.\n" +
			"Shortcuts around the verification page don't work. Tap Verify Now and let the page finish.",
	}
}

func rejectScreen(reason verification.RejectReason) *Screen {
	if reason.BypassSuspected() {
		return bypassScreen()
	}
	switch reason {
	case verification.ReasonExpired, verification.ReasonNotFound:
		return &Screen{Text: "That verification link has expired. Request a fresh one and try again."}
	case verification.ReasonReused:
		return &Screen{Text: "That verification link was already used. Request a fresh one if you need to verify again."}
	default:
		return &Screen{Text: "That verification link isn't valid for this account. Request a fresh one and try again."}
	}
}
