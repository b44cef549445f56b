package mockapi

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/Strob0t/AccessDesk/internal/domain/employee"
)

var firstNames = []string{
	"Ana", "Bruno", "Carla", "Daniel", "Eduarda", "Felipe", "Gabriela", "Henrique", "Isabela", "João",
	"Karen", "Lucas", "Marina", "Nicolas", "Olívia", "Paulo", "Quésia", "Rafael", "Sofia", "Tiago",
	"Ursula", "Vitor", "Wesley", "Xavier", "Yasmin", "Zeca", "Amanda", "Bernardo", "Camila", "Diego",
}

var lastNames = []string{
	"Silva", "Costa", "Dias", "Martins", "Oliveira", "Souza", "Lima", "Almeida", "Ferreira", "Gomes",
	"Barbosa", "Rocha", "Melo", "Pereira", "Ramos", "Teixeira", "Vieira", "Cardoso", "Freitas", "Batista",
	"Monteiro", "Cavalcante", "Azevedo", "Farias", "Rezende", "Peixoto", "Cunha", "Moura", "Santos", "Campos",
}

const (
	emailDomain   = "company.com"
	createdWithin = 60 * 24 * time.Hour
	updatedWithin = 10 * 24 * time.Hour
	activeRatio   = 0.7
)

// GenerateRoster builds count employees from rng. The same seed always
// yields the same roster relative to now.
func GenerateRoster(rng *rand.Rand, count int, now time.Time) []employee.Employee {
	out := make([]employee.Employee, 0, count)
	for i := range count {
		first := firstNames[i%len(firstNames)]
		last := lastNames[i%len(lastNames)]

		systems := make([]employee.System, len(employee.Systems))
		copy(systems, employee.Systems)
		rng.Shuffle(len(systems), func(a, b int) { systems[a], systems[b] = systems[b], systems[a] })
		n := 2 + rng.IntN(4)

		access := make([]employee.SystemAccess, 0, n)
		for _, sys := range systems[:n] {
			access = append(access, employee.SystemAccess{
				System:     sys,
				Status:     rng.Float64() < activeRatio,
				OriginalID: employee.OriginalID(fmt.Sprintf("%s-%d", sys.Slug(), 1000+i)),
			})
		}

		out = append(out, employee.Employee{
			ID:          fmt.Sprintf("emp-%d", i+1),
			Name:        first + " " + last,
			Email:       fmt.Sprintf("%s.%s%d@%s", emailPart(first), emailPart(last), i, emailDomain),
			Systems:     access,
			CreatedAt:   now.Add(-randDuration(rng, createdWithin)).UTC(),
			LastUpdated: now.Add(-randDuration(rng, updatedWithin)).UTC(),
		})
	}
	return out
}

func randDuration(rng *rand.Rand, max time.Duration) time.Duration {
	return time.Duration(rng.Int64N(int64(max)))
}

// emailPart lowercases s and strips diacritics ("João" -> "joao").
func emailPart(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}
