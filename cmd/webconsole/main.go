// Command webconsole is a small demo: it collects a few typed answers in the
// browser and prints them back with styles and math.
package main

import (
	"strings"

	"github.com/user/webconsole"
	"github.com/user/webconsole/console"
)

func main() {
	webconsole.Run(demo)
}

func demo(c *console.Console) {
	c.Println("@(blue, bold, italic)Personal information collector")
	c.Println("@(gray, italic)Please fill in your details below:")

	first := console.ReadString(c, "Your first name:")
	last := console.ReadString(c, "Your last name:")
	age := console.Read[int](c, "Your age:")
	height := console.Read[float64](c, "Your height (in meters):")
	married := console.Read[bool](c, "Are you married (true/false):")
	letter := console.Read[console.Char](c, "What is your favorite letter?")

	status := "you are not"
	if married {
		status = "you are"
	}
	c.Printlnf("@(cyan)Hello, @(green, bold)%s @(red, bold)%s@(cyan), you are @(yellow)%d@(cyan) years old, "+
		"@(blue)%.2f@(cyan) m tall, your favorite letter is '@(magenta)%s@(cyan)' and @(orange, bold)%s@(cyan) married.",
		first, last, age, height, letter, status)

	c.Println("")
	c.Println("@(green, bold)Some arithmetic:")
	c.Printlnf("Age in months: @(yellow)%d", age*12)
	c.Printlnf("Height in cm: @(blue)%.0f", height*100)
	c.Printlnf("Last name in uppercase: @(red, bold)%s", strings.ToUpper(last))

	c.Println("")
	c.Println("@(purple, bold)And some math:")
	c.Latex(`E = mc^2`)
	c.Latex(`\[ \int_0^1 x^2 \, dx = \frac{1}{3} \]`)
	c.Latex(`\begin{pmatrix} 1 & 0 \\ 0 & 1 \end{pmatrix}`)

	c.Println("")
	c.Println("@(green, bold)Done. You can close this tab.")
}
