package normalizer

// DefaultSynonyms covers the app names our content authors actually use
// that the upstream database searches badly on. Keys are matched after
// abbreviation expansion, so "incline db press" lands on the
// "incline dumbbell press" entry.
var DefaultSynonyms = SynonymTable{
	"pull-ups":               "pull up",
	"pull ups":               "pull up",
	"chin-ups":               "chin up",
	"chin ups":               "chin up",
	"push-ups":               "push up",
	"push ups":               "push up",
	"sit-ups":                "sit up",
	"hip thrusts":            "barbell hip thrust",
	"hip thrust":             "barbell hip thrust",
	"incline dumbbell press": "dumbbell incline bench press",
	"incline barbell press":  "barbell incline bench press",
	"flat dumbbell press":    "dumbbell bench press",
	"skullcrushers":          "lying triceps extension",
	"skull crushers":         "lying triceps extension",
	"good mornings":          "good morning",
	"lat pulldown":           "cable pulldown",
	"lat pulldowns":          "cable pulldown",
	"rdl":                    "barbell romanian deadlift",
	"romanian deadlift":      "barbell romanian deadlift",
	"bulgarian split squat":  "dumbbell single leg split squat",
	"calf raises":            "standing calf raise",
	"face pulls":             "cable face pull",
	"hanging leg raises":     "hanging leg raise",
}
