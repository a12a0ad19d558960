package progress

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Daily targets the indicators are measured against
const (
	HydrationTargetMl = 2000
	SleepTargetHours  = 8.0
)

// Level grades one health indicator
type Level int

const (
	LevelNone Level = iota
	LevelCritical
	LevelWarning
	LevelGood
)

func (l Level) String() string {
	switch l {
	case LevelCritical:
		return "critical"
	case LevelWarning:
		return "warning"
	case LevelGood:
		return "good"
	default:
		return "none"
	}
}

// MarshalText encodes the level by name
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText decodes a level name; unknown names decode to LevelNone
func (l *Level) UnmarshalText(text []byte) error {
	switch string(text) {
	case "critical":
		*l = LevelCritical
	case "warning":
		*l = LevelWarning
	case "good":
		*l = LevelGood
	default:
		*l = LevelNone
	}
	return nil
}

// Indicator is the assessment of one daily metric. Activity has no target.
type Indicator struct {
	Level   Level   `json:"level"`
	Message string  `json:"message"`
	Current float64 `json:"current"`
	Target  float64 `json:"target,omitempty"`
}

// HealthAssessment grades the day's hydration, sleep and activity
type HealthAssessment struct {
	Hydration Indicator `json:"hydration"`
	Sleep     Indicator `json:"sleep"`
	Activity  Indicator `json:"activity"`
}

// Message keys. The English text doubles as the key.
const (
	msgHydrationNone     = "Log your water intake."
	msgSleepNone         = "Log your hours of sleep."
	msgActivityNone      = "Do your workout today."
	msgHydrationCritical = "Drink more water! You are dehydrated."
	msgHydrationWarning  = "Keep drinking water to reach your goal."
	msgHydrationGood     = "Great hydration!"
	msgSleepCritical     = "Too little sleep. Rest is essential."
	msgSleepWarning      = "Try to sleep at least 7 hours."
	msgSleepGood         = "Perfect sleep!"
	msgActivityWarning   = "Move a little more today."
	msgActivityGood      = "Good activity!"
	msgActivityGreat     = "Excellent activity today!"
)

var supportedLocales = []language.Tag{language.English, language.BrazilianPortuguese}

var localeMatcher = language.NewMatcher(supportedLocales)

func init() {
	pt := language.BrazilianPortuguese
	translations := map[string]string{
		msgHydrationNone:     "Registre sua hidratação.",
		msgSleepNone:         "Registre suas horas de sono.",
		msgActivityNone:      "Faça seu treino hoje.",
		msgHydrationCritical: "Beba mais água! Você está desidratado.",
		msgHydrationWarning:  "Continue bebendo água para atingir sua meta.",
		msgHydrationGood:     "Ótima hidratação!",
		msgSleepCritical:     "Pouco sono. O descanso é essencial.",
		msgSleepWarning:      "Tente dormir pelo menos 7 horas.",
		msgSleepGood:         "Sono perfeito!",
		msgActivityWarning:   "Movimente-se um pouco mais hoje.",
		msgActivityGood:      "Boa atividade!",
		msgActivityGreat:     "Excelente atividade hoje!",
	}
	for key, text := range translations {
		if err := message.SetString(pt, key, text); err != nil {
			panic(err)
		}
	}
}

// Messages renders health messages in one locale
type Messages struct {
	printer *message.Printer
	tag     language.Tag
}

// NewMessages returns the renderer for the supported locale closest to locale.
// Unknown or empty locales fall back to English.
func NewMessages(locale string) *Messages {
	desired, err := language.Parse(locale)
	if err != nil {
		desired = language.English
	}
	_, idx, _ := localeMatcher.Match(desired)
	tag := supportedLocales[idx]
	return &Messages{printer: message.NewPrinter(tag), tag: tag}
}

// Locale returns the selected locale
func (m *Messages) Locale() string {
	return m.tag.String()
}

func (m *Messages) text(key string) string {
	return m.printer.Sprintf(key)
}

// Assess grades the given daily values. A zero value means nothing was
// logged and yields LevelNone with a prompt to log it.
func (m *Messages) Assess(hydrationMl int, sleepHours float64, caloriesBurned int) HealthAssessment {
	return HealthAssessment{
		Hydration: m.hydration(hydrationMl),
		Sleep:     m.sleep(sleepHours),
		Activity:  m.activity(caloriesBurned),
	}
}

func (m *Messages) hydration(ml int) Indicator {
	ind := Indicator{Current: float64(ml), Target: HydrationTargetMl}
	switch {
	case ml <= 0:
		ind.Level, ind.Message = LevelNone, m.text(msgHydrationNone)
	case ml < 500:
		ind.Level, ind.Message = LevelCritical, m.text(msgHydrationCritical)
	case ml < 1500:
		ind.Level, ind.Message = LevelWarning, m.text(msgHydrationWarning)
	default:
		ind.Level, ind.Message = LevelGood, m.text(msgHydrationGood)
	}
	return ind
}

func (m *Messages) sleep(hours float64) Indicator {
	ind := Indicator{Current: hours, Target: SleepTargetHours}
	switch {
	case hours <= 0:
		ind.Level, ind.Message = LevelNone, m.text(msgSleepNone)
	case hours < 5:
		ind.Level, ind.Message = LevelCritical, m.text(msgSleepCritical)
	case hours < 7:
		ind.Level, ind.Message = LevelWarning, m.text(msgSleepWarning)
	default:
		ind.Level, ind.Message = LevelGood, m.text(msgSleepGood)
	}
	return ind
}

func (m *Messages) activity(calories int) Indicator {
	ind := Indicator{Current: float64(calories)}
	switch {
	case calories <= 0:
		ind.Level, ind.Message = LevelNone, m.text(msgActivityNone)
	case calories < 100:
		ind.Level, ind.Message = LevelWarning, m.text(msgActivityWarning)
	case calories < 250:
		ind.Level, ind.Message = LevelGood, m.text(msgActivityGood)
	default:
		ind.Level, ind.Message = LevelGood, m.text(msgActivityGreat)
	}
	return ind
}
