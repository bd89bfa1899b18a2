package server

import (
	"html"
	"strconv"
	"strings"

	"albumserver/pkg/models"
)

// navLinks builds the navigation bar shown on every page but the track listing
func navLinks(base string) string {
	links := []struct{ path, text string }{
		{"albums", "Albums"},
		{"artists", "Artists"},
		{"labels", "Labels"},
		{"add_album", "Add Album"},
		{"add_track", "Add Track"},
		{"add_artist", "Add Artist"},
		{"add_label", "Add Label"},
		{"", "Logout"},
	}

	parts := make([]string, 0, len(links))
	for _, l := range links {
		parts = append(parts, "<a href="+base+l.path+">"+l.text+"</a>")
	}
	return strings.Join(parts, "\n")
}

// trackNavLinks builds the two-link bar of the track listing
func trackNavLinks(base string) string {
	return "<a href=" + base + "albums>Back</a>\n" +
		"<a href=" + base + ">Logout</a>\n"
}

// albumRows formats the album listing. Each title links to its track listing.
func albumRows(base string, albums []models.AlbumListing) string {
	base = strings.TrimSuffix(base, "/")

	var b strings.Builder
	for _, a := range albums {
		b.WriteString("<tr><td><input type='checkbox' onclick='Add2Total()' id='buyme'></td>")
		b.WriteString("<td><a href=" + base + "/tracks?ID=" + strconv.Itoa(a.ID) + ">" + html.EscapeString(a.Title) + "</a></td>")
		b.WriteString("<td>" + html.EscapeString(a.ArtistName) + "</td>")
		b.WriteString("<td>" + strconv.Itoa(a.Year) + "</td>")
		b.WriteString("<td>" + html.EscapeString(a.LabelName) + "</td>")
		b.WriteString("<td>" + formatPrice(a.Price) + "</td></tr>")
	}
	return b.String()
}

func artistRows(artists []models.Artist) string {
	var b strings.Builder
	for _, a := range artists {
		b.WriteString("<tr><td>" + html.EscapeString(a.Name) + "</td><td>" +
			html.EscapeString(a.City) + "</td><td>" + html.EscapeString(a.State) + "</td></tr>")
	}
	return b.String()
}

func labelRows(labels []models.RecordLabel) string {
	var b strings.Builder
	for _, l := range labels {
		b.WriteString("<tr><td>" + html.EscapeString(l.Name) + "</td></tr>")
	}
	return b.String()
}

func trackRows(tracks []models.Track) string {
	var b strings.Builder
	for _, t := range tracks {
		b.WriteString("<tr><td>" + strconv.Itoa(t.Number) + "</td><td>" +
			html.EscapeString(t.Title) + "</td><td>" + html.EscapeString(t.Length) + "</td></tr>")
	}
	return b.String()
}

// option formats a single <option> of a select menu
func option(id int, text string) string {
	return "<option value=" + strconv.Itoa(id) + ">" + html.EscapeString(text) + "</option>"
}

func artistOptions(artists []models.Artist) string {
	var b strings.Builder
	for _, a := range artists {
		b.WriteString(option(a.ID, a.Name))
	}
	return b.String()
}

func labelOptions(labels []models.RecordLabel) string {
	var b strings.Builder
	for _, l := range labels {
		b.WriteString(option(l.ID, l.Name))
	}
	return b.String()
}

func albumOptions(albums []models.AlbumListing) string {
	var b strings.Builder
	for _, a := range albums {
		b.WriteString(option(a.ID, a.Title))
	}
	return b.String()
}

// formatPrice prints the shortest representation that round-trips
func formatPrice(price float64) string {
	return strconv.FormatFloat(price, 'f', -1, 64)
}
