package songs

import "math/rand/v2"

// Practice phrases for the read-aloud mode.
var phrases = []string{
	"Hello world", "How are you", "What is your name", "Good morning",
	"Thank you very much", "Excuse me please", "I am sorry", "Have a nice day",
	"The sky is blue", "I love to travel",
	"The quick brown fox jumps over the lazy dog",
	"An apple a day keeps the doctor away",
	"Never underestimate the power of a good book",
	"The early bird catches the worm", "Actions speak louder than words",
	"Where there is a will, there is a way", "Technology has changed the world we live in",
	"To be or not to be, that is the question", "Every cloud has a silver lining",
	"The best way to predict the future is to create it", "Honesty is the best policy",
	"In the middle of difficulty lies opportunity",
	"The only thing we have to fear is fear itself",
	"That which does not kill us makes us stronger",
	"The journey of a thousand miles begins with a single step",
}

func Phrases() []string {
	return append([]string(nil), phrases...)
}

func RandomPhrase() string {
	return phrases[rand.IntN(len(phrases))]
}
