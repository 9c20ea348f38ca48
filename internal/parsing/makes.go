package parsing

import "sort"

// knownMakes lists the manufacturer names recognized by deterministic
// make/model splitting. Multi-word names must win over their prefixes
// ("Land Rover" before "Rover"), so the slice is sorted by descending
// length at init.
var knownMakes = []string{
	"Gordon Murray Automotive",
	"Mercedes-Benz",
	"Harley-Davidson",
	"BMW Motorrad",
	"Land Rover",
	"Morgan Aeromax",
	"Morgan SuperSport",
	"Rolls-Royce",
	"Mercedes-AMG",
	"Bugatti",
	"Koenigsegg",
	"Pagani",
	"Rimac",
	"Hennessey",
	"GMA",
	"Acura",
	"Abarth",
	"Alfa Romeo",
	"Alpina",
	"Alpine",
	"Aston Martin",
	"Audi",
	"Bentley",
	"BMW",
	"BYD",
	"Cadillac",
	"Chevrolet",
	"Chrysler",
	"Citroën",
	"Dacia",
	"Daewoo",
	"Daihatsu",
	"Dodge",
	"Donkervoort",
	"DS",
	"Ferrari",
	"Fiat",
	"Fisker",
	"Ford",
	"Genesis",
	"Honda",
	"Hummer",
	"Hyundai",
	"Infiniti",
	"Iveco",
	"Jaguar",
	"Jeep",
	"Kia",
	"KTM",
	"Lada",
	"Lamborghini",
	"Lancia",
	"Landwind",
	"Lexus",
	"Lucid",
	"Lotus",
	"Maserati",
	"Maybach",
	"Mazda",
	"McLaren",
	"Mercedes",
	"Mini",
	"Mitsubishi",
	"Morgan",
	"Nissan",
	"Opel",
	"Peugeot",
	"Plymouth",
	"Polestar",
	"Pontiac",
	"Porsche",
	"Ram",
	"Renault",
	"Rivian",
	"Rolls-Royce",
	"Rover",
	"Saab",
	"Saturn",
	"Scion",
	"Seat",
	"Skoda",
	"Smart",
	"SsangYong",
	"Subaru",
	"Suzuki",
	"Tata",
	"Tesla",
	"Toyota",
	"Volkswagen",
	"Volvo",
	"International",
	"Mercury",
	"GMC",
	"Aprilia",
	"Benelli",
	"Bimota",
	"Ducati",
	"Hero MotoCorp",
	"Husqvarna",
	"Indian",
	"Kawasaki",
	"Moto Guzzi",
	"MV Agusta",
	"Piaggio",
	"Royal Enfield",
	"Triumph",
	"TVS",
	"Vespa",
	"Yamaha",
	"Zero Motorcycles",
	"BSA",
}

// makeNormalization maps sub-brands and alternate names to the canonical make.
var makeNormalization = map[string]string{
	"Mercedes-AMG": "Mercedes-Benz",
	"GMA":          "Gordon Murray Automotive",
}

func init() {
	sort.SliceStable(knownMakes, func(i, j int) bool {
		return len(knownMakes[i]) > len(knownMakes[j])
	})
}

// KnownMakes returns a copy of the recognized make dictionary, longest
// names first.
func KnownMakes() []string {
	out := make([]string, len(knownMakes))
	copy(out, knownMakes)
	return out
}

// NormalizeMake maps a matched make to its canonical name.
func NormalizeMake(make string) string {
	if canonical, ok := makeNormalization[make]; ok {
		return canonical
	}
	return make
}
