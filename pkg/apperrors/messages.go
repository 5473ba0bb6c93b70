package apperrors

import "golang.org/x/text/language"

var messageLanguages = []language.Tag{
	language.English,
	language.French,
}

var messageMatcher = language.NewMatcher(messageLanguages)

// userMessages holds one fixed, role-agnostic sentence per kind and
// language. Raw technical messages never reach the end user.
var userMessages = map[language.Tag]map[Kind]string{
	language.English: {
		KindValidation:     "Please check the highlighted fields and try again.",
		KindAuthentication: "Your session has ended. Please sign in again.",
		KindAuthorization:  "You do not have permission to perform this action.",
		KindNetwork:        "We cannot reach the server right now. Please try again later.",
		KindServer:         "Something went wrong on our side. Please try again later.",
		KindNotFound:       "The requested item could not be found.",
		KindRateLimit:      "Too many attempts. Please wait a moment and try again.",
		KindUnknown:        "An unexpected error occurred. Please try again.",
	},
	language.French: {
		KindValidation:     "Veuillez vérifier les champs indiqués et réessayer.",
		KindAuthentication: "Votre session a expiré. Veuillez vous reconnecter.",
		KindAuthorization:  "Vous n'avez pas la permission d'effectuer cette action.",
		KindNetwork:        "Le serveur est injoignable pour le moment. Veuillez réessayer plus tard.",
		KindServer:         "Une erreur est survenue de notre côté. Veuillez réessayer plus tard.",
		KindNotFound:       "L'élément demandé est introuvable.",
		KindRateLimit:      "Trop de tentatives. Veuillez patienter un instant avant de réessayer.",
		KindUnknown:        "Une erreur inattendue est survenue. Veuillez réessayer.",
	},
}

// UserMessage returns the user-facing sentence for a kind in the best
// matching language. English is the fallback for unknown preferences.
func UserMessage(kind Kind, prefs ...language.Tag) string {
	_, idx, _ := messageMatcher.Match(prefs...)
	msgs := userMessages[messageLanguages[idx]]
	if msg, ok := msgs[kind]; ok {
		return msg
	}
	return msgs[KindUnknown]
}
