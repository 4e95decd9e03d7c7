package credentials

import (
	"fmt"
	"io"
	"strings"
)

// ShowTelegramGuide explains where the application id and hash come from
func ShowTelegramGuide(w io.Writer) {
	fmt.Fprintln(w, strings.Repeat("=", 80))
	fmt.Fprintln(w, "📚 TELEGRAM API CREDENTIALS")
	fmt.Fprintln(w, strings.Repeat("=", 80))
	fmt.Fprintln(w)
	fmt.Fprintln(w, "🌐 STEP 1: Go to https://my.telegram.org and log in with your phone number")
	fmt.Fprintln(w, "🔧 STEP 2: Open 'API development tools' and create an application")
	fmt.Fprintln(w, "🔑 STEP 3: Copy the 'App api_id' (a number) and 'App api_hash'")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "💡 The first data command asks for your phone, the login code and the")
	fmt.Fprintln(w, "   2FA password if one is set. The session is then kept on disk.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("=", 80))
}

// ShowDiscordGuide explains how to capture the session header snippet
func ShowDiscordGuide(w io.Writer) {
	fmt.Fprintln(w, strings.Repeat("=", 80))
	fmt.Fprintln(w, "📚 DISCORD SESSION HEADERS")
	fmt.Fprintln(w, strings.Repeat("=", 80))
	fmt.Fprintln(w)
	fmt.Fprintln(w, "🌐 STEP 1: Open https://discord.com/app in your browser and log in")
	fmt.Fprintln(w, "🔧 STEP 2: Open Developer Tools (F12) and go to the Network tab")
	fmt.Fprintln(w, "📡 STEP 3: Open any channel so a request to /api/v9/channels/.../messages appears")
	fmt.Fprintln(w, "🍪 STEP 4: Right click it → Copy → Copy as PowerShell")
	fmt.Fprintln(w, "💾 STEP 5: Paste into a text file and run: chatdump auth discord --file <file>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "⚠️  SECURITY WARNING:")
	fmt.Fprintln(w, "   • The authorization header gives FULL access to your Discord account")
	fmt.Fprintln(w, "   • NEVER share it with anyone")
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("=", 80))
}
