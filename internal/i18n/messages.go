// Package i18n renders the handful of user-facing messages the queue and
// alert flows return. Templates are typed: each declares the kinds of its
// placeholders and Render rejects mismatched arguments.
package i18n

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrUnknownMessage = errors.New("unknown message")
	ErrTemplateArgs   = errors.New("template argument mismatch")
)

type Locale string

const (
	English  Locale = "en"
	Gujarati Locale = "gu"
	Hindi    Locale = "hi"
)

// ParseLocale accepts ISO codes or language names; anything else is English.
func ParseLocale(s string) Locale {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "gu", "gujarati":
		return Gujarati
	case "hi", "hindi":
		return Hindi
	default:
		return English
	}
}

type MessageID int

const (
	TokenIssued MessageID = iota + 1
	YourTurn
	SOSSent
	SurgeAlert
	PanicDetected
	Dispatched
	NoAlerts
)

type ArgKind int

const (
	KindInt ArgKind = iota + 1
	KindText
	KindClock
)

func (k ArgKind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindText:
		return "text"
	case KindClock:
		return "clock"
	}
	return "unknown"
}

type Arg struct {
	kind ArgKind
	i    int
	s    string
	t    time.Time
}

func Int(v int) Arg { return Arg{kind: KindInt, i: v} }
func Text(v string) Arg { return Arg{kind: KindText, s: v} }
func Clock(v time.Time) Arg { return Arg{kind: KindClock, t: v} }

func (a Arg) format() string {
	switch a.kind {
	case KindInt:
		return strconv.Itoa(a.i)
	case KindClock:
		return a.t.Format("15:04")
	default:
		return a.s
	}
}

type template struct {
	args []ArgKind
	text map[Locale]string
}

// Placeholders are written {0}, {1}, ... in argument order.
var templates = map[MessageID]template{
	TokenIssued: {
		args: []ArgKind{KindInt, KindClock},
		text: map[Locale]string{
			English:  "Pass Issued! Wait: {0} mins. Slot: {1}. Real-time Update.",
			Gujarati: "પાસ જારી! વાટ: {0} મિન. સ્લોટ: {1}. રીઅલ-ટાઇમ અપડેટ.",
			Hindi:    "पास जारी! प्रतीक्षा: {0} मिन. स्लॉट: {1}. रीयल-टाइम अपडेट.",
		},
	},
	YourTurn: {
		text: map[Locale]string{
			English:  "Your Turn! Proceed.",
			Gujarati: "તમારી વાર! આગળ વધો.",
			Hindi:    "आपकी बारी! आगे बढ़ें.",
		},
	},
	SOSSent: {
		text: map[Locale]string{
			English:  "SOS Sent! First Responders Alerted. Drone Dispatched.",
			Gujarati: "SOS મોકલાયું! પ્રથમ પ્રતિભાગીઓ અલર્ટ. ડ્રોન મોકલાયું.",
			Hindi:    "SOS भेजा! फर्स्ट रिस्पॉन्डर्स अलर्ट. ड्रोन भेजा.",
		},
	},
	SurgeAlert: {
		text: map[Locale]string{
			English:  "Surge Forecast: Limiting Slots",
			Gujarati: "સર્જ અનુમાન: સ્લોટ્સ મર્યાદિત",
			Hindi:    "सर्ज पूर्वानुमान: स्लॉट्स सीमित",
		},
	},
	PanicDetected: {
		args: []ArgKind{KindText},
		text: map[Locale]string{
			English:  "Panic at {0}! Alert triggered.",
			Gujarati: "{0} પર પેનિક! અલર્ટ ટ્રિગર.",
			Hindi:    "{0} पर पैनिक! अलर्ट ट्रिगर.",
		},
	},
	Dispatched: {
		text: map[Locale]string{
			English:  "Dispatched! (Police/Medical).",
			Gujarati: "મોકલાયું! (પોલીસ/મેડિકલ).",
			Hindi:    "भेजा! (पुलिस/मेडिकल).",
		},
	},
	NoAlerts: {
		text: map[Locale]string{
			English:  "No Alerts.",
			Gujarati: "કોઈ અલર્ટ્સ નથી.",
			Hindi:    "कोई अलर्ट नहीं।",
		},
	},
}

// Render fills template id for locale. Missing locales fall back to English.
func Render(id MessageID, locale Locale, args ...Arg) (string, error) {
	tpl, ok := templates[id]
	if !ok {
		return "", fmt.Errorf("%w: %d", ErrUnknownMessage, id)
	}
	if len(args) != len(tpl.args) {
		return "", fmt.Errorf("%w: message %d wants %d args, got %d", ErrTemplateArgs, id, len(tpl.args), len(args))
	}
	for i, kind := range tpl.args {
		if args[i].kind != kind {
			return "", fmt.Errorf("%w: message %d arg %d wants %s, got %s", ErrTemplateArgs, id, i, kind, args[i].kind)
		}
	}

	text, ok := tpl.text[locale]
	if !ok {
		text = tpl.text[English]
	}
	for i, a := range args {
		text = strings.ReplaceAll(text, "{"+strconv.Itoa(i)+"}", a.format())
	}
	return text, nil
}
