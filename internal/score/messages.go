package score

const CorrectMessage = "You actually knew that one! Nice."

var WrongMessages = []string{
	"That's embarrassing.",
	"Tell me you don't use Twitter without telling me...",
	"Your Twitter literacy is concerning.",
	"Yikes. Just yikes.",
	"Are you even on the internet?",
	"My grandma would've gotten that one.",
	"Respectfully... no.",
	"The confidence was there, the accuracy was not.",
	"You really thought? 💀",
	"Delete your account.",
	"That was so wrong it's almost impressive.",
	"Did you guess with your eyes closed?",
	"Not even close, bestie.",
	"Twitter is rolling in its grave.",
	"Elon would be disappointed. Actually, maybe not.",
	"That guess was more unhinged than the tweet itself.",
	"Were you even reading the tweet?",
	"I'm going to pretend I didn't see that.",
	"L + ratio + wrong answer.",
	"You must be new here.",
}

var resultMessages = map[int]Message{
	0: {
		Title:    "Absolutely Cooked 💀",
		Subtitle: "0/3 — Do you even have Twitter? Maybe touch some grass... or a phone.",
	},
	1: {
		Title:    "Barely Survived 😬",
		Subtitle: "1/3 — One lucky guess doesn't make you a Twitter scholar.",
	},
	2: {
		Title:    "Not Bad! 🤔",
		Subtitle: "2/3 — You clearly spend some time on the timeline. Respect.",
	},
	3: {
		Title:    "Tweet Whisperer 🏆",
		Subtitle: "3/3 — You know unhinged tweets like the back of your hand. Iconic.",
	},
}
