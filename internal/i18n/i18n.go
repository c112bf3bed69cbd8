// Package i18n resolves the UI language and formats user-visible messages.
package i18n

import (
	"os"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"

	"github.com/eliteGoblin/ultrafont/internal/domain"
)

// Message keys.
const (
	KeySuccessTitle     = "success_title"
	KeySuccessMsg       = "success_msg"
	KeyAlreadyInstalled = "already_installed"
	KeyInstalled        = "installed"
	KeyInvalid          = "invalid"
	KeyFailed           = "failed"
	KeyReady            = "ready"
	KeyDownloading      = "downloading"
	KeyDownloadSuccess  = "download_success"
	KeyUninstallSuccess = "uninstall_success"
	KeyRestartDesc      = "restart_desc"
	KeyNotElevated      = "not_elevated"
	KeyRestarted        = "restarted"
	KeyNoFonts          = "no_fonts"
	KeyNoHistory        = "no_history"
)

// Supported languages; the first is the fallback.
var supported = []language.Tag{language.English, language.French}

var matcher = language.NewMatcher(supported)

var translations = map[language.Tag]map[string]string{
	language.English: {
		KeySuccessTitle:     "Success",
		KeySuccessMsg:       "%d fonts installed",
		KeyAlreadyInstalled: "Already installed",
		KeyInstalled:        "Installed",
		KeyInvalid:          "Invalid",
		KeyFailed:           "Failed",
		KeyReady:            "Ready",
		KeyDownloading:      "Downloading %s...",
		KeyDownloadSuccess:  "%s downloaded",
		KeyUninstallSuccess: "%s uninstalled",
		KeyRestartDesc:      "Restarting Explorer to refresh the font cache",
		KeyNotElevated:      "Not running as administrator; font registration may fail",
		KeyRestarted:        "Explorer restarted to refresh the font cache",
		KeyNoFonts:          "No font files found.",
		KeyNoHistory:        "No history yet.",
	},
	language.French: {
		KeySuccessTitle:     "Succès",
		KeySuccessMsg:       "%d polices installées",
		KeyAlreadyInstalled: "Déjà installée",
		KeyInstalled:        "Installée",
		KeyInvalid:          "Invalide",
		KeyFailed:           "Échec",
		KeyReady:            "Prêt",
		KeyDownloading:      "Téléchargement de %s...",
		KeyDownloadSuccess:  "%s téléchargée",
		KeyUninstallSuccess: "%s désinstallée",
		KeyRestartDesc:      "Redémarrage de l'Explorateur pour rafraîchir le cache des polices",
		KeyNotElevated:      "Exécution sans droits administrateur ; l'enregistrement des polices peut échouer",
		KeyRestarted:        "Explorateur redémarré pour rafraîchir le cache des polices",
		KeyNoFonts:          "Aucun fichier de police trouvé.",
		KeyNoHistory:        "Aucun historique pour le moment.",
	},
}

var messages = buildCatalog()

func buildCatalog() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(supported[0]))
	for tag, entries := range translations {
		for key, msg := range entries {
			if err := b.SetString(tag, key, msg); err != nil {
				panic(err)
			}
		}
	}
	return b
}

// Translator formats messages in one language.
type Translator struct {
	tag     language.Tag
	printer *message.Printer
}

// New returns a translator for the language setting ("System", "en", "fr").
func New(setting string) *Translator {
	return NewWithEnv(setting, os.Getenv)
}

// NewWithEnv resolves "System" through env (for testing).
func NewWithEnv(setting string, env func(string) string) *Translator {
	tag := Resolve(setting, env)
	return &Translator{tag: tag, printer: message.NewPrinter(tag, message.Catalog(messages))}
}

// Tag returns the resolved language.
func (t *Translator) Tag() language.Tag {
	return t.tag
}

// T formats the message for key. Unknown keys are returned as-is.
func (t *Translator) T(key string, args ...interface{}) string {
	return t.printer.Sprintf(key, args...)
}

// Resolve maps a language setting to a supported tag. "System" consults
// LC_ALL, LC_MESSAGES and LANG; anything unmatched falls back to English.
func Resolve(setting string, env func(string) string) language.Tag {
	want := setting
	if want == "" || strings.EqualFold(want, domain.LanguageSystem) {
		want = systemLocale(env)
	}
	if want == "" {
		return supported[0]
	}
	tag, err := language.Parse(want)
	if err != nil {
		return supported[0]
	}
	_, idx, conf := matcher.Match(tag)
	if conf == language.No {
		return supported[0]
	}
	return supported[idx]
}

// systemLocale returns a BCP 47 form of the POSIX locale, e.g.
// "fr_FR.UTF-8" becomes "fr-FR".
func systemLocale(env func(string) string) string {
	for _, name := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		v := env(name)
		if v == "" || v == "C" || v == "POSIX" {
			continue
		}
		if i := strings.IndexAny(v, ".@"); i >= 0 {
			v = v[:i]
		}
		return strings.ReplaceAll(v, "_", "-")
	}
	return ""
}
