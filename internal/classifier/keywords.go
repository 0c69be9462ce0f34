package classifier

// Keyword tables. Every entry is stored pre-normalized (lowercase, no
// diacritics) because matching happens on Normalize() output. Multi-word
// entries keep single spaces.

// legalKeywords signal that a post concerns the legal profession.
var legalKeywords = []string{
	"avocat", "avocate", "avocats",
	"juriste", "juristes",
	"fiscaliste",
	"notaire", "notarial",
	"cabinet",
	"collaborateur", "collaboratrice", "collaboration liberale",
	"droit",
	"droit des affaires", "droit social", "droit fiscal", "droit public",
	"droit immobilier", "droit penal", "droit de la famille",
	"propriete intellectuelle", "contentieux", "arbitrage",
	"corporate", "fusions acquisitions", "restructuring",
	"compliance", "contrats", "barreau", "juridique",
	"legal counsel", "paralegal", "assistant juridique",
}

// recruitKeywords signal recruitment intent.
var recruitKeywords = []string{
	"recrute", "recrutons", "recrutement", "recruter",
	"poste", "poste a pourvoir", "offre",
	"cdi", "cdd",
	"rejoindre", "rejoignez", "rejoint",
	"candidature", "candidatures", "candidat", "candidate", "postuler",
	"profil", "profils",
	"experience", "annees d experience", "ans d experience",
	"embauche", "recherchons", "recherche un", "recherche une",
	"hiring", "join our team", "opportunite",
	"equipe", "renforcer notre equipe", "agrandit",
}

// strongRecruitPhrases rescue an otherwise promotional-looking post: a
// webinar announcement that also says "nous recrutons" is still an offer.
var strongRecruitPhrases = []string{
	"nous recrutons", "on recrute", "recrute un", "recrute une",
	"poste a pourvoir", "rejoignez notre", "rejoignez nous",
	"nous recherchons", "recherchons un", "recherchons une",
	"cherchons un", "cherchons une", "we are hiring",
}

// internshipKeywords mark internship/apprenticeship offers.
var internshipKeywords = []string{
	"stage", "stages", "stagiaire", "stagiaires",
	"alternance", "alternant", "alternante",
	"apprentissage", "apprenti", "apprentie",
	"contrat de professionnalisation", "internship", "intern",
}

// freelanceKeywords mark freelance/temp-mission offers.
var freelanceKeywords = []string{
	"freelance", "free lance", "independant", "independante",
	"mission ponctuelle", "mission courte", "mission de remplacement",
	"temps partage", "interim", "vacataire", "prestation ponctuelle",
}

// jobSeekerKeywords mark posts written by people looking for a job,
// not offering one.
var jobSeekerKeywords = []string{
	"open to work", "opentowork",
	"a l ecoute d opportunites", "a l ecoute du marche",
	"recherche un poste", "recherche d emploi", "en recherche active",
	"je recherche", "je suis a la recherche",
	"disponible pour un nouveau", "candidate au poste",
	"mon cv", "my resume",
}

// promotionalKeywords mark purely promotional or informational posts.
var promotionalKeywords = []string{
	"webinaire", "webinar", "conference", "colloque",
	"article", "publication", "tribune", "newsletter",
	"podcast", "replay", "livre blanc",
	"felicitations", "felicite", "congratulations",
	"formation", "atelier", "table ronde", "petit dejeuner",
	"classement", "palmares", "laureats",
}

// agencyKeywords mark third-party recruiting-agency posts.
var agencyKeywords = []string{
	"cabinet de recrutement", "cabinet de chasse", "chasseur de tetes",
	"pour notre client", "pour le compte de notre client",
	"pour l un de nos clients", "notre client recherche",
	"michael page", "hays", "robert walters", "fed legal",
	"page personnel", "approche directe",
}

// foreignLocationKeywords mark offers located outside France.
var foreignLocationKeywords = []string{
	"luxembourg", "geneve", "lausanne", "zurich", "bruxelles",
	"londres", "london", "dubai", "new york", "singapour",
	"montreal", "casablanca", "monaco", "lisbonne", "madrid",
	"milan", "francfort", "amsterdam",
}

// domesticLocationKeywords rescue a post mentioning a foreign office when a
// French location is also present.
var domesticLocationKeywords = []string{
	"paris", "lyon", "marseille", "bordeaux", "lille", "nantes",
	"toulouse", "strasbourg", "nice", "rennes", "montpellier",
	"grenoble", "aix en provence", "versailles", "nanterre",
	"ile de france", "la defense", "france", "francais", "francaise",
}

// professionLabels maps a display label to the keywords that flag it.
// Informational only: the labels never influence accept/reject.
var professionLabels = map[string][]string{
	"avocat":     {"avocat", "avocate", "avocats", "collaborateur", "collaboratrice", "barreau"},
	"juriste":    {"juriste", "juristes", "legal counsel"},
	"fiscaliste": {"fiscaliste", "droit fiscal"},
	"notaire":    {"notaire", "notarial"},
}
