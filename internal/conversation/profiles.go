package conversation

import (
	"fmt"
	"strings"
)

// Profile is a predefined company description that can seed a conversation.
type Profile struct {
	Name     string `mapstructure:"name" json:"name" validate:"required"`
	Overview string `mapstructure:"overview" json:"overview"`
	Benefits string `mapstructure:"benefits" json:"benefits"`
}

// BogaGroup is the built-in restaurant group profile.
var BogaGroup = Profile{
	Name: "Boga Group",
	Overview: "Boga Group currently operates hundreds of restaurants with a workforce of thousands of highly trained professionals. " +
		"This rapid and successful expansion is attributed to a steadfast commitment to utilizing only high-quality ingredients paired with exceptional service. " +
		"These distinguishing characteristics set Boga apart within the industry. " +
		"Each brand under Boga Group is renowned for understanding customers' needs and delivering memorable dining experiences.\n\n" +
		"Boga Group's diverse portfolio includes 9 Bakerzin, 86 Pepper Lunch, 71 Kimukatsu, 7 Paradise Dynasty, 1 Shaburi, 4 Kintan Buffet, " +
		"15 Shaburi Kintan, 3 Putu Made, 24 Yakiniku Like, 2 Ocean8, 6 Ebiga, 2 Leten and 13 Loaf Bun. " +
		"These spreads across various cities in Indonesia, including Greater Jakarta, Bandung, Surabaya, Malang, Jember, Jogja, Solo, Semarang, " +
		"Medan, Batam, Pekanbaru, Balikpapan, Samarinda, Pontianak, Palembang, Makassar, Manado and Bali. " +
		"Boga Group also operates Boga Catering, a premium catering service and Creative Culinary, a central production facility that supports brand operations.",
	Benefits: "Benefit cuti 12 hari, BPJS, THR, Diskon karyawan",
}

// DefaultProfiles returns the built-in profiles.
func DefaultProfiles() []Profile {
	return []Profile{BogaGroup}
}

// Seed is the message a user would send to introduce the company.
func (p Profile) Seed() string {
	return fmt.Sprintf("I want to create a job description for %s. Here's our company overview: %s. Our benefits include: %s",
		p.Name, p.Overview, p.Benefits)
}

func findProfile(profiles []Profile, name string) (Profile, bool) {
	name = strings.TrimSpace(name)
	for _, p := range profiles {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return Profile{}, false
}
