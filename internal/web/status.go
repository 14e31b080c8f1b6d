package web

import (
	"context"
	"io"
	"strings"

	"github.com/a-h/templ"
)

// StatusPage renders a snapshot of the client and subscribes to the event
// stream to refresh itself.
func StatusPage(status Status) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Office Quiz</title>
  </head>
  <body>
    <main class="shell">
      <header class="hero">
        <span class="tag">Office Quiz</span>
        <h1>`)
		b.WriteString(esc(displayName(status.Name)))
		b.WriteString(`</h1>
        <p id="connection">`)
		if status.Connected {
			b.WriteString("Connected as session " + esc(status.SessionID))
		} else {
			b.WriteString("Disconnected")
		}
		b.WriteString(`</p>
      </header>

      <section class="panel">
        <h2>Player</h2>
        <dl>
          <dt>Behavior</dt><dd id="behavior">` + esc(status.Behavior) + `</dd>
          <dt>Position</dt><dd id="position">` + ftoa(status.X) + `, ` + ftoa(status.Y) + `</dd>
          <dt>Animation</dt><dd>` + esc(status.Anim) + `</dd>
          <dt>Progress</dt><dd id="progress">`)
		if status.ProgressVisible {
			b.WriteString(itoa(status.Progress))
		} else {
			b.WriteString("-")
		}
		b.WriteString(`</dd>
        </dl>
      </section>

      <section class="panel">
        <h2>Quiz</h2>
        <dl>
          <dt>Phase</dt><dd id="quizPhase">` + esc(status.Quiz.Phase) + `</dd>
          <dt>Round in progress</dt><dd>` + yesNo(status.Quiz.RoomRoundActive) + `</dd>
          <dt>Participants</dt><dd>` + esc(strings.Join(status.Quiz.Participants, ", ")) + `</dd>
        </dl>`)
		if round := status.Quiz.Round; round != nil {
			b.WriteString(`
        <p class="question">` + esc(round.Question) + `</p>`)
		}
		if status.Quiz.LastResult != "" {
			b.WriteString(`
        <p class="result">` + esc(status.Quiz.LastResult) + `</p>`)
		}
		if len(status.Quiz.History) > 0 {
			b.WriteString(`
        <table>
          <thead><tr><th>Time</th><th>Question</th><th>Answer</th><th>Correct</th><th>Prize</th></tr></thead>
          <tbody>`)
			for _, item := range status.Quiz.History {
				b.WriteString(`
            <tr><td>` + formatTime(item.CreatedAt) + `</td><td>` + itoa(item.QuestionID) + `</td><td>` + esc(item.Answer) + `</td><td>` + yesNo(item.IsCorrect) + `</td><td>` + itoa(item.PrizeMoney) + `</td></tr>`)
			}
			b.WriteString(`
          </tbody>
        </table>`)
		}
		b.WriteString(`
      </section>

      <section class="panel">
        <h2>Players</h2>
        <ul>`)
		for _, player := range status.Players {
			b.WriteString(`
          <li>` + esc(displayName(player.Name)) + ` (` + ftoa(player.X) + `, ` + ftoa(player.Y) + `)</li>`)
		}
		b.WriteString(`
        </ul>
      </section>

      <section class="panel">
        <h2>Chat</h2>
        <ul id="chat">`)
		for _, msg := range status.Chat {
			b.WriteString(`
          <li><strong>` + esc(msg.Author) + `</strong> ` + esc(msg.Content) + `</li>`)
		}
		b.WriteString(`
        </ul>
      </section>

`)
		if len(status.Rooms) > 0 {
			b.WriteString(`
      <section class="panel">
        <h2>Rooms</h2>
        <ul id="rooms">`)
			for _, item := range status.Rooms {
				b.WriteString(`
          <li>` + esc(item.Name) + ` (` + itoa(item.Clients) + `/` + itoa(item.MaxClients) + `)`)
				if item.HasPassword {
					b.WriteString(` locked`)
				}
				b.WriteString(`</li>`)
			}
			b.WriteString(`
        </ul>
      </section>
`)
		}
		if len(status.Alerts) > 0 {
			b.WriteString(`
      <section class="panel">
        <h2>Tax alerts</h2>
        <ul id="alerts">`)
			for _, alert := range status.Alerts {
				b.WriteString(`
          <li>` + formatTime(alert.At) + ` ` + esc(alert.Nickname) + ` ` + ftoa(alert.TaxAmount) + `</li>`)
			}
			b.WriteString(`
        </ul>
      </section>
`)
		}
		b.WriteString(`
      <section class="panel">
        <h2>Events</h2>
        <ul id="events"></ul>
      </section>
    </main>

    <script>
      const eventsList = document.getElementById("events");
      const proto = location.protocol === "https:" ? "wss://" : "ws://";
      const socket = new WebSocket(proto + location.host + "/ws/events");
      socket.addEventListener("message", (msg) => {
        const data = JSON.parse(msg.data);
        const item = document.createElement("li");
        item.textContent = data.topic + " " + JSON.stringify(data.event);
        eventsList.prepend(item);
        while (eventsList.children.length > 50) {
          eventsList.removeChild(eventsList.lastChild);
        }
        if (data.topic === "progress.changed") {
          document.getElementById("progress").textContent = data.event.visible ? data.event.value : "-";
        }
        if (data.topic === "quiz.phase_changed") {
          document.getElementById("quizPhase").textContent = data.event.to;
        }
      });
    </script>
  </body>
</html>
`)
		_, err := io.WriteString(w, b.String())
		return err
	})
}

func esc(value string) string {
	return templ.EscapeString(value)
}

func displayName(name string) string {
	if strings.TrimSpace(name) == "" {
		return "(unnamed)"
	}
	return name
}
