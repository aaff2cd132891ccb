package graph

// Namespace prefixes. IRIs are kept in prefixed form.
const (
	RDF  = "rdf:"
	RDFS = "rdfs:"
	Ruta = "ruta:"
)

// Schema terms.
const (
	Type        = RDF + "type"
	Property    = RDF + "Property"
	First       = RDF + "first"
	Rest        = RDF + "rest"
	Nil         = RDF + "nil"
	Class       = RDFS + "Class"
	Resource    = RDFS + "Resource"
	SubClassOf  = RDFS + "subClassOf"
	SubProperty = RDFS + "subPropertyOf"
	Domain      = RDFS + "domain"
	Range       = RDFS + "range"
)

// Classes of the road ontology.
const (
	ClassWay          = Ruta + "Via"
	ClassStreet       = Ruta + "Calle"
	ClassAvenue       = Ruta + "Avenida"
	ClassHighway      = Ruta + "Autopista"
	ClassCarrera      = Ruta + "Carrera"
	ClassTransversal  = Ruta + "Transversal"
	ClassNode         = Ruta + "Nodo"
	ClassIntersection = Ruta + "Interseccion"
	ClassLandmark     = Ruta + "PuntoReferencia"
	ClassLight        = Ruta + "Semaforo"
	ClassEvent        = Ruta + "Evento"
	ClassRoute        = Ruta + "Ruta"
)

// Way predicates.
const (
	WayName          = Ruta + "nombre"               // string
	WayFlow          = Ruta + "fluidez"              // string, a flow level
	WayHasLight      = Ruta + "tieneSemaforo"        // bool, informational
	WayLight         = Ruta + "tieneSemaforoObj"     // IRI of a Semaforo
	WayAffectedBy    = Ruta + "afectadaPor"          // IRI of an Evento, repeated
	WaySpeed         = Ruta + "tieneVelocidadMaxima" // float, km/h
	WayBidirectional = Ruta + "esBidireccional"      // bool
	WayLength        = Ruta + "longitud"             // float, km
	WayReaches       = Ruta + "esConectada"          // IRI of an Interseccion, repeated
)

// Traffic light predicates.
const (
	LightWait = Ruta + "tiempoEspera" // float, seconds
	LightOn   = Ruta + "estaEnVia"    // IRI of a Via
)

// Event predicates.
const (
	EventType     = Ruta + "tipo"        // string
	EventDuration = Ruta + "duracion"    // float, minutes
	EventClosure  = Ruta + "cierreTotal" // bool
	EventWay      = Ruta + "afectaVia"   // IRI of a Via
)

// Node predicates.
const (
	NodeNumber     = Ruta + "numero"        // int
	NodeIntersects = Ruta + "intersectaCon" // IRI of an Interseccion, repeated
	NodeConnects   = Ruta + "conectaCon"    // IRI of a Via (intersections) or Interseccion (landmarks), repeated
	LandmarkName   = Ruta + "tieneNombre"   // string
)

// Route predicates. Sequences are rdf lists.
const (
	RouteNumber    = Ruta + "numero"         // int
	RouteWays      = Ruta + "tieneVias"      // list of Via IRIs in travel order
	RouteStops     = Ruta + "pasaPor"        // list of Interseccion IRIs in travel order
	RouteDistance  = Ruta + "tieneDistancia" // float, informational
	RouteEstimated = Ruta + "tiempoEstimado" // float, informational
)

// WayClasses maps the way subclasses to their category names.
var WayClasses = map[string]string{
	ClassStreet:      "calle",
	ClassAvenue:      "avenida",
	ClassHighway:     "autopista",
	ClassCarrera:     "carrera",
	ClassTransversal: "transversal",
}

// LocalName strips the namespace prefix of an IRI.
func LocalName(iri string) string {
	for i := len(iri) - 1; i >= 0; i-- {
		switch iri[i] {
		case ':', '#', '/':
			return iri[i+1:]
		}
	}
	return iri
}
