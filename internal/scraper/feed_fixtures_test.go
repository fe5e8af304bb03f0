package scraper_test

import (
	"fmt"
	"strings"
)

// rssFeed renders an RSS 2.0 document with n items whose links are
// prefix/0 .. prefix/n-1.
func rssFeed(prefix string, n int) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:media="http://search.yahoo.com/mrss/"><channel><title>Feed</title>`)
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, `<item><title>Vaga %d</title><description>&lt;p&gt;Descrição %d&lt;/p&gt;</description><link>%s/%d</link></item>`,
			i, i, prefix, i)
	}
	b.WriteString(`</channel></rss>`)
	return b.String()
}

const mediaFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:media="http://search.yahoo.com/mrss/">
<channel>
  <title>Bolsas</title>
  <item>
    <title><![CDATA[<b>Bolsa</b> de Doutoramento]]></title>
    <description><![CDATA[<p>Candidaturas <em>abertas</em>.</p>]]></description>
    <link>https://www.fct.pt/bolsas/1</link>
    <pubDate>Mon, 02 Jun 2025 10:00:00 GMT</pubDate>
    <media:content url="https://www.fct.pt/img/1.jpg" medium="image"/>
    <enclosure url="https://www.fct.pt/img/1-enc.jpg" type="image/jpeg" length="100"/>
  </item>
  <item>
    <title>Bolsa com anexo</title>
    <link>https://www.fct.pt/bolsas/2</link>
    <enclosure url="https://www.fct.pt/img/2.jpg" type="image/jpeg" length="100"/>
  </item>
  <item>
    <title>Bolsa em grupo</title>
    <link>https://www.fct.pt/bolsas/3</link>
    <media:group>
      <media:content url="https://www.fct.pt/img/3.jpg" medium="image"/>
    </media:group>
  </item>
</channel>
</rss>`

const atomFeed = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Research jobs</title>
  <entry>
    <title>Postdoc in Lisbon</title>
    <link href="https://euraxess.ec.europa.eu/jobs/42"/>
    <updated>2025-06-01T12:00:00Z</updated>
    <content type="html">&lt;p&gt;Two year position.&lt;/p&gt;</content>
  </entry>
</feed>`
