package authflow

// Labels are the intent-dependent texts of the auth screen.
type Labels struct {
	Submit string `json:"submit"`
	Prompt string `json:"prompt"`
	Toggle string `json:"toggle"`
}

// LabelsFor returns the screen texts for intent.
func LabelsFor(intent Intent) Labels {
	if intent == IntentRegister {
		return Labels{
			Submit: "Register",
			Prompt: "Already have an account?",
			Toggle: "Login",
		}
	}
	return Labels{
		Submit: "Sign in",
		Prompt: "New to Messenger?",
		Toggle: "Create an account",
	}
}
